// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package registry

import (
	"testing"

	"github.com/szbani/kioskfleet/internal/models"
)

func testDisplays() []models.RegisteredDisplay {
	return []models.RegisteredDisplay{
		{ID: "d1", KioskName: "lobby", MacAddress: "AA:AA:AA:AA:AA:01", Nickname: "Lobby"},
		{ID: "d2", KioskName: "cafeteria", MacAddress: "AA:AA:AA:AA:AA:02", Nickname: "Cafeteria"},
		{ID: "d3", KioskName: "entrance", MacAddress: "AA:AA:AA:AA:AA:03", Nickname: "Entrance"},
	}
}

func TestAddClientIdempotent(t *testing.T) {
	r := New(testDisplays())

	r.AddClient("c1", "lobby", "10.0.0.5", "AA:AA:AA:AA:AA:01")
	r.AddClient("c1", "lobby", "10.0.0.5", "AA:AA:AA:AA:AA:01")

	clients, _ := r.Counts()
	if clients != 1 {
		t.Fatalf("clients = %d after duplicate AddClient, want 1", clients)
	}
}

func TestRemoveAbsentClientSucceeds(t *testing.T) {
	r := New(nil)
	r.RemoveClient("never-added")
	r.RemoveAdmin("never-added")
}

func TestDuplicateLogicalNamesTrackedSeparately(t *testing.T) {
	r := New(testDisplays())

	r.AddClient("c1", "lobby", "10.0.0.5", "AA:AA:AA:AA:AA:01")
	r.AddClient("c2", "lobby", "10.0.0.5", "AA:AA:AA:AA:AA:01")

	if got := len(r.ClientsByName("lobby")); got != 2 {
		t.Fatalf("ClientsByName = %d entries, want 2", got)
	}

	r.RemoveClient("c1")
	if got := len(r.ClientsByName("lobby")); got != 1 {
		t.Fatalf("ClientsByName = %d entries after one removal, want 1", got)
	}
}

func TestStatusSnapshotOrdering(t *testing.T) {
	r := New(testDisplays())

	// Entrance and cafeteria are online, lobby stays offline.
	r.AddClient("c1", "entrance", "10.0.0.7", "AA:AA:AA:AA:AA:03")
	r.AddClient("c2", "cafeteria", "10.0.0.8", "AA:AA:AA:AA:AA:02")

	snap := r.StatusSnapshot()
	if len(snap.RegisteredDisplays) != 3 {
		t.Fatalf("RegisteredDisplays = %d rows, want 3", len(snap.RegisteredDisplays))
	}

	// Online first, then ties broken by nickname.
	wantNicknames := []string{"Cafeteria", "Entrance", "Lobby"}
	wantStatus := []models.ConnectionStatus{models.StatusOnline, models.StatusOnline, models.StatusOffline}
	for i, row := range snap.RegisteredDisplays {
		if row.Nickname != wantNicknames[i] || row.Status != wantStatus[i] {
			t.Errorf("row %d = (%q, %d), want (%q, %d)",
				i, row.Nickname, row.Status, wantNicknames[i], wantStatus[i])
		}
	}
	if snap.RegisteredDisplays[0].KioskName != "cafeteria" {
		t.Errorf("online row missing kiosk name: %+v", snap.RegisteredDisplays[0])
	}
	if snap.RegisteredDisplays[2].KioskName != "" {
		t.Errorf("offline row carries kiosk name: %+v", snap.RegisteredDisplays[2])
	}
}

func TestStatusSnapshotPartitionsConnections(t *testing.T) {
	r := New(testDisplays())

	r.AddClient("c1", "lobby", "10.0.0.5", "AA:AA:AA:AA:AA:01")
	r.AddClient("c2", "popup-stand", "10.0.0.9", "BB:BB:BB:BB:BB:01")

	snap := r.StatusSnapshot()

	// A matched connection never shows up as discoverable.
	for _, d := range snap.UnregisteredDisplays {
		if d.KioskName == "lobby" {
			t.Fatalf("registered display listed as discoverable: %+v", d)
		}
	}
	if len(snap.UnregisteredDisplays) != 1 || snap.UnregisteredDisplays[0].KioskName != "popup-stand" {
		t.Fatalf("UnregisteredDisplays = %+v", snap.UnregisteredDisplays)
	}
}

func TestRefreshRecomputesLiveConnections(t *testing.T) {
	r := New(nil)

	r.AddClient("c1", "popup-stand", "10.0.0.9", "BB:BB:BB:BB:BB:01")
	if conn, _ := r.Client("c1"); conn.Registered {
		t.Fatal("connection registered against an empty catalog")
	}

	r.RefreshRegisteredDisplays([]models.RegisteredDisplay{
		{ID: "d9", MacAddress: "bb:bb:bb:bb:bb:01", Nickname: "Popup"},
	})

	conn, ok := r.Client("c1")
	if !ok || !conn.Registered || conn.DisplayID != "d9" {
		t.Fatalf("connection after refresh = %+v", conn)
	}

	snap := r.StatusSnapshot()
	if len(snap.UnregisteredDisplays) != 0 {
		t.Fatalf("still discoverable after refresh: %+v", snap.UnregisteredDisplays)
	}
}

func TestMacDiscoveryUpdatesRegistration(t *testing.T) {
	r := New(testDisplays())

	r.AddClient("c1", "lobby", "10.0.0.5", "")
	if conn, _ := r.Client("c1"); conn.Registered {
		t.Fatal("registered without a hardware address")
	}

	r.SetClientMacAddress("c1", "AA:AA:AA:AA:AA:01")
	conn, _ := r.Client("c1")
	if !conn.Registered || conn.DisplayNickname != "Lobby" {
		t.Fatalf("connection after discovery = %+v", conn)
	}
}

func TestAdminLifecycle(t *testing.T) {
	r := New(nil)

	r.AddAdmin("a1", "szbani")
	r.AddAdmin("a1", "szbani")
	r.AddAdmin("a2", "operator")

	if got := r.AdminUsernames(); len(got) != 2 || got[0] != "operator" || got[1] != "szbani" {
		t.Fatalf("AdminUsernames = %v", got)
	}

	r.RemoveAdmin("a1")
	if _, admins := r.Counts(); admins != 1 {
		t.Fatalf("admins = %d after removal, want 1", admins)
	}
}
