// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package models

import "time"

// ConnectionStatus reports whether a display is reachable over a live
// websocket connection. The numeric values are part of the wire protocol.
type ConnectionStatus int

const (
	StatusOnline  ConnectionStatus = 0
	StatusOffline ConnectionStatus = 1
)

// ClientConnection describes one live kiosk connection. Two connections may
// share a kiosk name (a reconnect race starts the new connection before the
// old one times out); each is tracked independently by ConnectionID.
type ClientConnection struct {
	// ConnectionID is the server-generated instance id, unique per connection.
	ConnectionID string `json:"connectionId"`

	// KioskName is the logical name the client chose at connect time.
	KioskName string `json:"kioskName"`

	IPAddress string `json:"ipAddress"`

	// MacAddress may be empty until discovery succeeds.
	MacAddress string `json:"macAddress"`

	ConnectedAt time.Time `json:"connectedAt"`

	// Registration fields, recomputed whenever the registered-display
	// catalog snapshot changes.
	Registered         bool   `json:"registered"`
	DisplayID          string `json:"displayId,omitempty"`
	DisplayNickname    string `json:"displayNickname,omitempty"`
	DisplayDescription string `json:"displayDescription,omitempty"`
}

// AdminConnection describes one live admin session.
type AdminConnection struct {
	ConnectionID string    `json:"connectionId"`
	Username     string    `json:"username"`
	ConnectedAt  time.Time `json:"connectedAt"`
}

// RegisteredDisplay is a kiosk whose hardware address has been persisted to
// the catalog. The MAC address is the join key against live connections.
type RegisteredDisplay struct {
	ID          string `json:"id"`
	KioskName   string `json:"kioskName"`
	MacAddress  string `json:"macAddress"`
	Nickname    string `json:"nickName"`
	Description string `json:"description"`
}

// DisplayStatus is one row of the registered-display portion of a fleet
// status snapshot. KioskName is empty for offline displays.
type DisplayStatus struct {
	ID          string           `json:"id"`
	KioskName   string           `json:"kioskName"`
	Nickname    string           `json:"nickName"`
	Description string           `json:"description"`
	Status      ConnectionStatus `json:"status"`
}

// DiscoverableDisplay is a live client whose hardware address matches no
// registered display.
type DiscoverableDisplay struct {
	KioskName  string           `json:"kioskName"`
	MacAddress string           `json:"macAddress"`
	Status     ConnectionStatus `json:"status"`
}

// FleetStatus is the snapshot pushed to admin connections whenever fleet
// state changes.
type FleetStatus struct {
	RegisteredDisplays   []DisplayStatus       `json:"registeredDisplays"`
	UnregisteredDisplays []DiscoverableDisplay `json:"unRegisteredDisplays"`
}

// AccountInfo identifies an admin account. Credential storage lives behind
// the accounts directory collaborator; this is the read-only projection.
type AccountInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}
