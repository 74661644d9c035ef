// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package catalog

import (
	"context"
	"testing"

	"github.com/szbani/kioskfleet/internal/models"
)

// catalogImpls returns each Catalog implementation under a descriptive name.
func catalogImpls(t *testing.T) map[string]Catalog {
	t.Helper()

	badgerCat, err := OpenBadger(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { _ = badgerCat.Close() })

	return map[string]Catalog{
		"memory": NewMemory(),
		"badger": badgerCat,
	}
}

func TestCatalogLifecycle(t *testing.T) {
	for name, cat := range catalogImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			display := &models.RegisteredDisplay{
				KioskName:   "lobby",
				MacAddress:  "AA:BB:CC:DD:EE:FF",
				Nickname:    "Lobby Screen",
				Description: "ground floor",
			}
			count, err := cat.RegisterDisplay(ctx, display)
			if err != nil || count != 1 {
				t.Fatalf("RegisterDisplay = (%d, %v), want (1, nil)", count, err)
			}
			if display.ID == "" {
				t.Fatal("RegisterDisplay did not assign an ID")
			}

			all, err := cat.GetAll(ctx)
			if err != nil {
				t.Fatalf("GetAll: %v", err)
			}
			if len(all) != 1 || all[0].KioskName != "lobby" {
				t.Fatalf("GetAll = %+v", all)
			}

			count, err = cat.Modify(ctx, &models.RegisteredDisplay{
				ID:          display.ID,
				Nickname:    "Main Lobby",
				Description: "renamed",
			})
			if err != nil || count != 1 {
				t.Fatalf("Modify = (%d, %v), want (1, nil)", count, err)
			}

			all, _ = cat.GetAll(ctx)
			if all[0].Nickname != "Main Lobby" {
				t.Errorf("Nickname = %q after modify", all[0].Nickname)
			}
			// Empty MAC in the modify request keeps the stored MAC.
			if all[0].MacAddress != "AA:BB:CC:DD:EE:FF" {
				t.Errorf("MacAddress = %q after modify", all[0].MacAddress)
			}

			count, err = cat.Modify(ctx, &models.RegisteredDisplay{ID: "missing"})
			if err != nil || count != 0 {
				t.Fatalf("Modify unknown = (%d, %v), want (0, nil)", count, err)
			}

			count, err = cat.Remove(ctx, display.ID)
			if err != nil || count != 1 {
				t.Fatalf("Remove = (%d, %v), want (1, nil)", count, err)
			}
			count, err = cat.Remove(ctx, display.ID)
			if err != nil || count != 0 {
				t.Fatalf("Remove again = (%d, %v), want (0, nil)", count, err)
			}
		})
	}
}
