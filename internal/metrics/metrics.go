// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

// Package metrics holds the Prometheus instrumentation for the fleet server:
// connection gauges, protocol message counters, upload throughput and
// broadcast volume. Collectors register through promauto at init and are
// served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection Metrics
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kioskfleet_connected_clients",
			Help: "Current number of live kiosk connections",
		},
	)

	ConnectedAdmins = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kioskfleet_connected_admins",
			Help: "Current number of live admin connections",
		},
	)

	// Protocol Metrics
	MessagesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kioskfleet_messages_dispatched_total",
			Help: "Total protocol messages dispatched, by message type",
		},
		[]string{"type"},
	)

	ProtocolErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kioskfleet_protocol_errors_total",
			Help: "Total protocol errors, by kind",
		},
		[]string{"kind"}, // "malformed", "unknown_type", "orphan_binary"
	)

	// File Transfer Metrics
	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kioskfleet_upload_bytes_total",
			Help: "Total media bytes received over the file-transfer sub-protocol",
		},
	)

	UploadsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kioskfleet_uploads_completed_total",
			Help: "Total file uploads flushed to disk",
		},
	)

	// Fanout Metrics
	FleetBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kioskfleet_fleet_broadcasts_total",
			Help: "Total fleet-status snapshots pushed to admin connections",
		},
	)

	RemoteCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kioskfleet_remote_commands_total",
			Help: "Total remote power/discovery commands, by action and outcome",
		},
		[]string{"action", "outcome"},
	)
)
