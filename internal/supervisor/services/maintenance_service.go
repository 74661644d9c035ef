// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package services

import (
	"context"
	"time"

	"github.com/szbani/kioskfleet/internal/logging"
)

// Maintainer is a periodic upkeep hook, such as the catalog's value-log
// garbage collection.
type Maintainer interface {
	RunGC() error
}

// MaintenanceService runs a Maintainer on a fixed interval.
type MaintenanceService struct {
	name       string
	interval   time.Duration
	maintainer Maintainer
}

// NewMaintenanceService wraps a maintainer. Intervals at or below zero
// default to five minutes.
func NewMaintenanceService(name string, interval time.Duration, m Maintainer) *MaintenanceService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &MaintenanceService{name: name, interval: interval, maintainer: m}
}

// Serve implements suture.Service. Upkeep failures are logged and retried on
// the next tick rather than restarting the service.
func (s *MaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.maintainer.RunGC(); err != nil {
				logging.Warn().Str("service", s.name).Err(err).Msg("maintenance pass failed")
			}
		}
	}
}

func (s *MaintenanceService) String() string { return s.name }
