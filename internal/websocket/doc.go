// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

// Package websocket implements the fleet command protocol: the per-connection
// receive loop, the command dispatcher, the embedded file-transfer
// sub-protocol and the admin fanout.
//
// Every connection is one session with one receive loop. Text frames are
// JSON envelopes dispatched synchronously, so within a connection messages
// are processed strictly in arrival order and each reply is written before
// the next frame is read. Binary frames belong to the most recently opened
// upload on that connection; the open upload is the only state carried
// between messages.
//
// Admin connections arrive on the control endpoint and drive the fleet;
// kiosk connections arrive on the device endpoint and mostly listen for
// configuration pushes. Fleet-state changes fan out to every admin as a
// serialized status snapshot.
package websocket
