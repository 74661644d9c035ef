// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package websocket

import (
	"sync"

	"github.com/goccy/go-json"

	"github.com/szbani/kioskfleet/internal/logging"
	"github.com/szbani/kioskfleet/internal/metrics"
	"github.com/szbani/kioskfleet/internal/registry"
)

// Fanout delivers pushes to live connections: fleet-status snapshots to
// every admin, command notifications to every connection of a logical kiosk
// name. It holds the writable side of each session; the registry holds the
// metadata.
type Fanout struct {
	registry *registry.Registry

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewFanout creates a fanout over the given registry.
func NewFanout(reg *registry.Registry) *Fanout {
	return &Fanout{
		registry: reg,
		sessions: make(map[string]*Session),
	}
}

// Register tracks a live session for pushes.
func (f *Fanout) Register(s *Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
}

// Unregister stops pushing to a session. Unknown ids are ignored.
func (f *Fanout) Unregister(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
}

// BroadcastFleetStatus pushes the current registry snapshot to every admin.
// Called after every fleet-state change: connect, disconnect, catalog
// mutation.
func (f *Fanout) BroadcastFleetStatus() {
	snapshot := f.registry.StatusSnapshot()
	content, err := json.Marshal(snapshot)
	if err != nil {
		logging.Error().Err(err).Msg("marshal fleet status")
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, s := range f.sessions {
		if s.Role != RoleAdmin {
			continue
		}
		s.Send(Reply{
			Type:       ReplyConnectedUsers,
			Content:    string(content),
			TargetUser: s.Name,
		})
	}
	metrics.FleetBroadcasts.Inc()
}

// NotifyKiosk pushes a message to every live connection of a logical kiosk
// name and reports how many received it. Duplicate instances from reconnect
// races all get the push.
func (f *Fanout) NotifyKiosk(kioskName string, msg Reply) int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	sent := 0
	for _, s := range f.sessions {
		if s.Role == RoleClient && s.Name == kioskName {
			s.Send(msg)
			sent++
		}
	}
	return sent
}

// NotifyConfigUpdated tells every live connection of a kiosk to re-fetch
// its configuration.
func (f *Fanout) NotifyConfigUpdated(kioskName string) int {
	return f.NotifyKiosk(kioskName, Reply{
		Type:       pushConfigUpdated,
		TargetUser: kioskName,
	})
}

// CloseSession force-closes a session's connection, as after a successful
// remote shutdown. The receive loop performs cleanup when the read fails.
func (f *Fanout) CloseSession(id string) {
	f.mu.RLock()
	s, ok := f.sessions[id]
	f.mu.RUnlock()
	if ok {
		s.conn.Close()
	}
}
