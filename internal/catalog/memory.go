// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/szbani/kioskfleet/internal/models"
)

// MemoryCatalog is a map-backed Catalog. Registrations are lost on restart.
type MemoryCatalog struct {
	mu       sync.RWMutex
	displays map[string]models.RegisteredDisplay
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *MemoryCatalog {
	return &MemoryCatalog{displays: make(map[string]models.RegisteredDisplay)}
}

// RegisterDisplay stores a display, assigning an ID if missing.
func (c *MemoryCatalog) RegisterDisplay(_ context.Context, display *models.RegisteredDisplay) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if display.ID == "" {
		display.ID = uuid.NewString()
	}
	c.displays[display.ID] = *display
	return 1, nil
}

// GetAll returns every registered display, ordered by ID for determinism.
func (c *MemoryCatalog) GetAll(_ context.Context) ([]models.RegisteredDisplay, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	displays := make([]models.RegisteredDisplay, 0, len(c.displays))
	for _, d := range c.displays {
		displays = append(displays, d)
	}
	sort.Slice(displays, func(i, j int) bool { return displays[i].ID < displays[j].ID })
	return displays, nil
}

// Modify updates an existing record. Returns 0 when the ID is unknown.
func (c *MemoryCatalog) Modify(_ context.Context, display *models.RegisteredDisplay) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.displays[display.ID]
	if !ok {
		return 0, nil
	}
	current.Nickname = display.Nickname
	current.Description = display.Description
	if display.MacAddress != "" {
		current.MacAddress = display.MacAddress
	}
	c.displays[display.ID] = current
	return 1, nil
}

// Remove deletes the display with the given ID. Returns 0 when unknown.
func (c *MemoryCatalog) Remove(_ context.Context, id string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.displays[id]; !ok {
		return 0, nil
	}
	delete(c.displays, id)
	return 1, nil
}

// Close is a no-op for the in-memory catalog.
func (c *MemoryCatalog) Close() error { return nil }
