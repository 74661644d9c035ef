// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

// Package accounts exposes the admin account directory. Accounts are
// provisioned through configuration; the directory is read-only at runtime
// and serves the admin list pushed to newly connected admin sessions.
package accounts

import (
	"github.com/google/uuid"

	"github.com/szbani/kioskfleet/internal/config"
	"github.com/szbani/kioskfleet/internal/models"
)

// Directory lists the known admin accounts.
type Directory interface {
	// GetAll returns every account, in configuration order.
	GetAll() []models.AccountInfo
}

// StaticDirectory serves the accounts declared in configuration.
type StaticDirectory struct {
	accounts []models.AccountInfo
}

// NewStatic builds a directory from config entries. Entries without an ID
// get one assigned so admin clients can key on it.
func NewStatic(entries []config.AccountConfig) *StaticDirectory {
	accounts := make([]models.AccountInfo, 0, len(entries))
	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		accounts = append(accounts, models.AccountInfo{
			ID:       id,
			Username: e.Username,
			Email:    e.Email,
		})
	}
	return &StaticDirectory{accounts: accounts}
}

// GetAll returns a copy so callers cannot mutate the directory.
func (d *StaticDirectory) GetAll() []models.AccountInfo {
	out := make([]models.AccountInfo, len(d.accounts))
	copy(out, d.accounts)
	return out
}
