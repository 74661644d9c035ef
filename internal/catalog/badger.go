// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/szbani/kioskfleet/internal/logging"
	"github.com/szbani/kioskfleet/internal/models"
)

// displayKeyPrefix namespaces display records in BadgerDB.
const displayKeyPrefix = "display:"

// BadgerCatalog implements Catalog on an embedded BadgerDB. One record per
// display, keyed by ID, JSON-encoded values.
type BadgerCatalog struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the catalog database in dir.
func OpenBadger(dir string) (*BadgerCatalog, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // badger's own logger is noisy; failures surface as errors
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	logging.Info().Str("dir", dir).Msg("display catalog opened")
	return &BadgerCatalog{db: db}, nil
}

// RegisterDisplay persists a display, assigning an ID if missing.
func (c *BadgerCatalog) RegisterDisplay(_ context.Context, display *models.RegisteredDisplay) (int, error) {
	if display.ID == "" {
		display.ID = uuid.NewString()
	}

	data, err := json.Marshal(display)
	if err != nil {
		return 0, fmt.Errorf("marshal display: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(displayKeyPrefix+display.ID), data)
	})
	if err != nil {
		return 0, fmt.Errorf("store display: %w", err)
	}
	return 1, nil
}

// GetAll returns every registered display.
func (c *BadgerCatalog) GetAll(_ context.Context) ([]models.RegisteredDisplay, error) {
	var displays []models.RegisteredDisplay

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(displayKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var d models.RegisteredDisplay
				if err := json.Unmarshal(val, &d); err != nil {
					return err
				}
				displays = append(displays, d)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list displays: %w", err)
	}
	return displays, nil
}

// Modify updates an existing display record. Returns 0 when the ID is unknown.
func (c *BadgerCatalog) Modify(_ context.Context, display *models.RegisteredDisplay) (int, error) {
	count := 0
	err := c.db.Update(func(txn *badger.Txn) error {
		key := []byte(displayKeyPrefix + display.ID)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var current models.RegisteredDisplay
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &current)
		}); err != nil {
			return err
		}

		current.Nickname = display.Nickname
		current.Description = display.Description
		if display.MacAddress != "" {
			current.MacAddress = display.MacAddress
		}

		data, err := json.Marshal(&current)
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		count = 1
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("modify display: %w", err)
	}
	return count, nil
}

// Remove deletes the display with the given ID. Returns 0 when unknown.
func (c *BadgerCatalog) Remove(_ context.Context, id string) (int, error) {
	count := 0
	err := c.db.Update(func(txn *badger.Txn) error {
		key := []byte(displayKeyPrefix + id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		count = 1
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("remove display: %w", err)
	}
	return count, nil
}

// RunGC performs one value-log garbage collection pass. badger.ErrNoRewrite
// means there was nothing to reclaim.
func (c *BadgerCatalog) RunGC() error {
	err := c.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Close releases the database.
func (c *BadgerCatalog) Close() error {
	return c.db.Close()
}
