// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

// Package catalog persists registered displays. The Catalog interface is the
// collaborator contract consumed by the registry and the dispatcher; the
// BadgerDB implementation keeps registrations across restarts, the in-memory
// implementation backs tests and catalog-less deployments.
package catalog

import (
	"context"

	"github.com/szbani/kioskfleet/internal/models"
)

// Catalog is the registered-display store. Modify and Remove report the
// number of records affected (0 when the target does not exist, 1 otherwise),
// matching the narrow repository contract the dispatcher expects.
type Catalog interface {
	// RegisterDisplay persists a display. A missing ID is assigned.
	RegisterDisplay(ctx context.Context, display *models.RegisteredDisplay) (int, error)

	// GetAll returns every registered display.
	GetAll(ctx context.Context) ([]models.RegisteredDisplay, error)

	// Modify updates nickname, description and (when non-empty) the MAC
	// address of the display with the given ID.
	Modify(ctx context.Context, display *models.RegisteredDisplay) (int, error)

	// Remove deletes the display with the given ID.
	Remove(ctx context.Context, id string) (int, error)

	// Close releases the backing store.
	Close() error
}
