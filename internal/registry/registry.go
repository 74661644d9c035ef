// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

// Package registry tracks live kiosk and admin connections. It is the only
// process-wide mutable state in the server; one instance is constructed at
// startup and injected into every connection handler. Connections are keyed
// by server-generated instance id, so duplicate logical kiosk names (a
// reconnect racing the old connection's timeout) are tracked independently.
package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/szbani/kioskfleet/internal/logging"
	"github.com/szbani/kioskfleet/internal/models"
)

// Registry holds the live connection maps and the cached registered-display
// catalog snapshot. All methods are safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	clients map[string]*models.ClientConnection
	admins  map[string]*models.AdminConnection

	// displays is the cached catalog snapshot. Refreshed after every
	// catalog mutation so live connections reflect registration changes
	// without a reconnect.
	displays []models.RegisteredDisplay
}

// New creates an empty registry with the given catalog snapshot.
func New(displays []models.RegisteredDisplay) *Registry {
	return &Registry{
		clients:  make(map[string]*models.ClientConnection),
		admins:   make(map[string]*models.AdminConnection),
		displays: displays,
	}
}

// AddClient inserts a kiosk connection and computes its registration fields
// from the cached catalog snapshot. Inserting an already-present connection
// id is a no-op, so a retried handshake cannot double-register.
func (r *Registry) AddClient(connectionID, kioskName, ipAddress, macAddress string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[connectionID]; ok {
		return
	}

	conn := &models.ClientConnection{
		ConnectionID: connectionID,
		KioskName:    kioskName,
		IPAddress:    ipAddress,
		MacAddress:   macAddress,
		ConnectedAt:  time.Now(),
	}
	r.applyRegistration(conn)
	r.clients[connectionID] = conn

	logging.Info().
		Str("connection_id", connectionID).
		Str("kiosk", kioskName).
		Str("ip", ipAddress).
		Bool("registered", conn.Registered).
		Msg("kiosk connected")
}

// SetClientMacAddress records a discovered hardware address and recomputes
// the connection's registration fields.
func (r *Registry) SetClientMacAddress(connectionID, macAddress string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.clients[connectionID]
	if !ok {
		return
	}
	conn.MacAddress = macAddress
	r.applyRegistration(conn)
}

// RemoveClient deletes a kiosk connection. Removing an absent id succeeds.
func (r *Registry) RemoveClient(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.clients[connectionID]; ok {
		delete(r.clients, connectionID)
		logging.Info().
			Str("connection_id", connectionID).
			Str("kiosk", conn.KioskName).
			Msg("kiosk disconnected")
	}
}

// AddAdmin inserts an admin connection. Idempotent per connection id.
func (r *Registry) AddAdmin(connectionID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.admins[connectionID]; ok {
		return
	}
	r.admins[connectionID] = &models.AdminConnection{
		ConnectionID: connectionID,
		Username:     username,
		ConnectedAt:  time.Now(),
	}
	logging.Info().
		Str("connection_id", connectionID).
		Str("username", username).
		Msg("admin connected")
}

// RemoveAdmin deletes an admin connection. Removing an absent id succeeds.
func (r *Registry) RemoveAdmin(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if admin, ok := r.admins[connectionID]; ok {
		delete(r.admins, connectionID)
		logging.Info().
			Str("connection_id", connectionID).
			Str("username", admin.Username).
			Msg("admin disconnected")
	}
}

// RefreshRegisteredDisplays replaces the cached catalog snapshot and
// recomputes the registration fields of every live kiosk connection in place.
func (r *Registry) RefreshRegisteredDisplays(displays []models.RegisteredDisplay) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.displays = displays
	for _, conn := range r.clients {
		r.applyRegistration(conn)
	}
}

// applyRegistration matches a connection's hardware address against the
// catalog snapshot. Caller holds the write lock.
func (r *Registry) applyRegistration(conn *models.ClientConnection) {
	conn.Registered = false
	conn.DisplayID = ""
	conn.DisplayNickname = ""
	conn.DisplayDescription = ""

	if conn.MacAddress == "" {
		return
	}
	for _, d := range r.displays {
		if strings.EqualFold(d.MacAddress, conn.MacAddress) {
			conn.Registered = true
			conn.DisplayID = d.ID
			conn.DisplayNickname = d.Nickname
			conn.DisplayDescription = d.Description
			return
		}
	}
}

// ClientsByName returns every live kiosk connection with the given logical
// name. More than one entry means a reconnect race is in progress.
func (r *Registry) ClientsByName(kioskName string) []models.ClientConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.ClientConnection
	for _, conn := range r.clients {
		if conn.KioskName == kioskName {
			out = append(out, *conn)
		}
	}
	return out
}

// Client returns the connection with the given instance id.
func (r *Registry) Client(connectionID string) (models.ClientConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.clients[connectionID]
	if !ok {
		return models.ClientConnection{}, false
	}
	return *conn, true
}

// AdminUsernames returns the usernames of all live admin sessions.
func (r *Registry) AdminUsernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.admins))
	for _, a := range r.admins {
		names = append(names, a.Username)
	}
	sort.Strings(names)
	return names
}

// Counts reports the number of live kiosk and admin connections.
func (r *Registry) Counts() (clients, admins int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients), len(r.admins)
}

// StatusSnapshot produces the fleet view pushed to admins: every registered
// display with its online/offline status, and every live connection whose
// hardware address matches no registered display. Registered displays are
// ordered online first, ties broken by nickname; a display never appears in
// both collections.
func (r *Registry) StatusSnapshot() models.FleetStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registered := make([]models.DisplayStatus, 0, len(r.displays))
	for _, d := range r.displays {
		row := models.DisplayStatus{
			ID:          d.ID,
			Nickname:    d.Nickname,
			Description: d.Description,
			Status:      models.StatusOffline,
		}
		for _, conn := range r.clients {
			if conn.MacAddress != "" && strings.EqualFold(conn.MacAddress, d.MacAddress) {
				row.Status = models.StatusOnline
				row.KioskName = conn.KioskName
				break
			}
		}
		registered = append(registered, row)
	}
	sort.Slice(registered, func(i, j int) bool {
		if registered[i].Status != registered[j].Status {
			return registered[i].Status < registered[j].Status
		}
		return registered[i].Nickname < registered[j].Nickname
	})

	discoverable := make([]models.DiscoverableDisplay, 0)
	for _, conn := range r.clients {
		if conn.Registered {
			continue
		}
		discoverable = append(discoverable, models.DiscoverableDisplay{
			KioskName:  conn.KioskName,
			MacAddress: conn.MacAddress,
			Status:     models.StatusOnline,
		})
	}
	sort.Slice(discoverable, func(i, j int) bool {
		return discoverable[i].KioskName < discoverable[j].KioskName
	})

	return models.FleetStatus{
		RegisteredDisplays:   registered,
		UnregisteredDisplays: discoverable,
	}
}
