// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package websocket

import (
	"fmt"
	"os"

	"github.com/szbani/kioskfleet/internal/logging"
	"github.com/szbani/kioskfleet/internal/metrics"
)

// Role classifies a connection by the endpoint it arrived on.
type Role int

const (
	RoleAdmin Role = iota
	RoleClient
)

// Session is the per-connection state. ID is the server-generated instance
// id; Name is the logical kiosk name or the admin username. The pending
// upload is the only state carried across messages; it is touched only by
// the connection's own receive loop, so it needs no lock.
type Session struct {
	ID       string
	Role     Role
	Name     string
	RemoteIP string

	conn *Conn

	pendingUpload *os.File
}

// NewSession builds a session around an upgraded connection.
func NewSession(id string, role Role, name, remoteIP string, conn *Conn) *Session {
	return &Session{
		ID:       id,
		Role:     role,
		Name:     name,
		RemoteIP: remoteIP,
		conn:     conn,
	}
}

// Send writes one JSON message to the peer. A failed write is logged; the
// receive loop notices the dead socket on its next read.
func (s *Session) Send(v interface{}) {
	if err := s.conn.WriteJSON(v); err != nil {
		logging.Debug().
			Str("connection_id", s.ID).
			Err(err).
			Msg("write failed")
	}
}

// OpenUpload creates or truncates the destination file and makes it the
// session's pending upload. An upload already in flight is closed first;
// the protocol allows an admin to abandon a stream by starting another.
func (s *Session) OpenUpload(path string) error {
	s.CloseUpload()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	s.pendingUpload = f
	return nil
}

// AppendUpload writes one binary frame to the open upload. It reports
// whether an upload was open.
func (s *Session) AppendUpload(data []byte) (bool, error) {
	if s.pendingUpload == nil {
		return false, nil
	}
	if _, err := s.pendingUpload.Write(data); err != nil {
		return true, fmt.Errorf("append upload: %w", err)
	}
	metrics.UploadBytes.Add(float64(len(data)))
	return true, nil
}

// FinishUpload flushes and closes the open upload. It reports whether an
// upload was open.
func (s *Session) FinishUpload() (bool, error) {
	if s.pendingUpload == nil {
		return false, nil
	}
	f := s.pendingUpload
	s.pendingUpload = nil

	if err := f.Sync(); err != nil {
		f.Close()
		return true, fmt.Errorf("flush upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return true, fmt.Errorf("close upload: %w", err)
	}
	return true, nil
}

// CloseUpload force-closes any open upload without flushing guarantees.
// Called on every connection exit path.
func (s *Session) CloseUpload() {
	if s.pendingUpload != nil {
		s.pendingUpload.Close()
		s.pendingUpload = nil
	}
}
