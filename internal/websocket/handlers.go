// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package websocket

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/szbani/kioskfleet/internal/accounts"
	"github.com/szbani/kioskfleet/internal/auth"
	"github.com/szbani/kioskfleet/internal/logging"
	"github.com/szbani/kioskfleet/internal/metrics"
	"github.com/szbani/kioskfleet/internal/registry"
)

// receiveBufferSize is the transport read buffer. Binary upload chunks up to
// this size arrive as single frames; larger messages are still assembled.
const receiveBufferSize = 256 * 1024

// Handlers upgrades HTTP requests into protocol sessions for the two
// endpoint roles and runs their receive loops.
type Handlers struct {
	registry   *registry.Registry
	fanout     *Fanout
	dispatcher *Dispatcher
	adapter    RemoteAdapter
	accounts   accounts.Directory

	// jwt is nil when auth mode is "none".
	jwt *auth.JWTManager

	upgrader websocket.Upgrader
}

// NewHandlers wires the endpoint handlers.
func NewHandlers(
	reg *registry.Registry,
	fanout *Fanout,
	dispatcher *Dispatcher,
	adapter RemoteAdapter,
	dir accounts.Directory,
	jwt *auth.JWTManager,
) *Handlers {
	return &Handlers{
		registry:   reg,
		fanout:     fanout,
		dispatcher: dispatcher,
		adapter:    adapter,
		accounts:   dir,
		jwt:        jwt,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  receiveBufferSize,
			WriteBufferSize: 4096,
			// Cross-origin policy is enforced by the router middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Admin handles the control endpoint. The caller must present a valid admin
// token unless auth mode is "none".
func (h *Handlers) Admin(w http.ResponseWriter, r *http.Request) {
	username := "admin"
	if h.jwt != nil {
		claims, err := h.jwt.ValidateToken(bearerToken(r))
		if err != nil {
			logging.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("admin token rejected")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		username = claims.Username
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("admin upgrade failed")
		return
	}

	session := NewSession(uuid.NewString(), RoleAdmin, username, remoteIP(r), NewConn(ws))
	h.registry.AddAdmin(session.ID, username)
	h.fanout.Register(session)
	metrics.ConnectedAdmins.Inc()

	session.Send(Reply{Type: ReplyConnectionAccepted, Content: username, TargetUser: username})
	if content, err := json.Marshal(h.accounts.GetAll()); err == nil {
		session.Send(Reply{Type: ReplyAdminList, Content: string(content), TargetUser: username})
	}
	h.fanout.BroadcastFleetStatus()

	h.run(session)
}

// Client handles the device endpoint. The kiosk names itself through the
// user query parameter; its hardware address is discovered on connect so
// registration status is known before the first command.
func (h *Handlers) Client(w http.ResponseWriter, r *http.Request) {
	kioskName := r.URL.Query().Get("user")
	if kioskName == "" {
		http.Error(w, "missing user parameter", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("client upgrade failed")
		return
	}

	ip := remoteIP(r)
	mac := ""
	if res := h.adapter.DiscoverMacAddress(ip); res.Success {
		mac = res.Message
	} else {
		logging.Warn().
			Str("kiosk", kioskName).
			Str("ip", ip).
			Str("reason", res.Message).
			Msg("hardware address discovery failed")
	}

	session := NewSession(uuid.NewString(), RoleClient, kioskName, ip, NewConn(ws))
	h.registry.AddClient(session.ID, kioskName, ip, mac)
	h.fanout.Register(session)
	metrics.ConnectedClients.Inc()
	h.fanout.BroadcastFleetStatus()

	h.run(session)
}

// run is the per-connection receive loop. Text frames dispatch synchronously
// so replies precede the next receive; binary frames feed the pending
// upload. Cleanup and the fleet broadcast happen on every exit path.
func (h *Handlers) run(session *Session) {
	defer func() {
		session.CloseUpload()
		if session.Role == RoleAdmin {
			h.registry.RemoveAdmin(session.ID)
			metrics.ConnectedAdmins.Dec()
		} else {
			h.registry.RemoveClient(session.ID)
			metrics.ConnectedClients.Dec()
		}
		h.fanout.Unregister(session.ID)
		session.conn.Close()
		h.fanout.BroadcastFleetStatus()
	}()

	ctx := context.Background()
	for {
		msgType, data, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debug().
					Str("connection_id", session.ID).
					Err(err).
					Msg("connection closed unexpectedly")
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			h.dispatcher.Dispatch(ctx, session, data)
		case websocket.BinaryMessage:
			open, err := session.AppendUpload(data)
			if !open {
				// Binary with no open upload is a protocol error; the
				// frame is dropped and the connection continues.
				metrics.ProtocolErrors.WithLabelValues("orphan_binary").Inc()
				logging.Warn().
					Str("connection_id", session.ID).
					Int("bytes", len(data)).
					Msg("binary frame with no open upload dropped")
				continue
			}
			if err != nil {
				logging.Error().
					Str("connection_id", session.ID).
					Err(err).
					Msg("upload write failed")
				session.CloseUpload()
				session.Send(Reply{Type: ReplyError, Content: "Failed to store file", TargetUser: session.Name})
			}
		}
	}
}

// bearerToken extracts the admin token from the Authorization header or,
// for browser websocket clients that cannot set headers, the token query
// parameter.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// remoteIP strips the port from the peer address.
func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
