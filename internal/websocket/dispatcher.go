// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package websocket

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/szbani/kioskfleet/internal/accounts"
	"github.com/szbani/kioskfleet/internal/catalog"
	"github.com/szbani/kioskfleet/internal/configstore"
	"github.com/szbani/kioskfleet/internal/logging"
	"github.com/szbani/kioskfleet/internal/metrics"
	"github.com/szbani/kioskfleet/internal/models"
	"github.com/szbani/kioskfleet/internal/registry"
	"github.com/szbani/kioskfleet/internal/remote"
)

// RemoteAdapter is the power/discovery capability consumed by the
// dispatcher. *remote.Adapter implements it; tests substitute fakes.
type RemoteAdapter interface {
	WakeOnLan(mac string) remote.Result
	Shutdown(address string) remote.Result
	Reboot(address string) remote.Result
	DiscoverMacAddress(address string) remote.Result
}

// Dispatcher decodes incoming envelopes and executes commands against the
// registry, config store, catalog and remote adapter. One Dispatch call per
// text frame, invoked synchronously from the connection's receive loop, so
// replies always precede the next receive on that connection.
type Dispatcher struct {
	registry *registry.Registry
	store    *configstore.Store
	adapter  RemoteAdapter
	catalog  catalog.Catalog
	accounts accounts.Directory
	fanout   *Fanout
	validate *validator.Validate
}

// NewDispatcher wires the dispatcher to its collaborators.
func NewDispatcher(
	reg *registry.Registry,
	store *configstore.Store,
	adapter RemoteAdapter,
	cat catalog.Catalog,
	dir accounts.Directory,
	fanout *Fanout,
) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		store:    store,
		adapter:  adapter,
		catalog:  cat,
		accounts: dir,
		fanout:   fanout,
		validate: validator.New(),
	}
}

// Dispatch handles one text frame. Protocol errors produce an Error reply
// and never close the connection.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		metrics.ProtocolErrors.WithLabelValues("malformed").Inc()
		d.replyError(s, "Invalid message format")
		return
	}

	metrics.MessagesDispatched.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case "getConnectedUsers":
		d.handleGetConnectedUsers(s)
	case "sendUpdateRequestToUser":
		d.handleSendUpdateRequest(s, data)
	case "prepareFileStream":
		d.handlePrepareFileStream(s, data)
	case "startFileStream":
		d.handleStartFileStream(s, data)
	case "endFileStream":
		d.handleEndFileStream(s)
	case "createImagePathConfig":
		d.handleCreateImagePathConfig(s, data)
	case "modifyImageOrder":
		d.handleModifyImageOrder(s, data)
	case "deleteMedia":
		d.handleDeleteMedia(s, data)
	case "AddSchedule":
		d.handleAddSchedule(s, data)
	case "EditSchedule":
		d.handleEditSchedule(s, data)
	case "DeleteSchedule":
		d.handleDeleteSchedule(s, data)
	case "Disconnect":
		d.handlePowerCommand(s, data, "shutdown")
	case "RebootDisplay":
		d.handlePowerCommand(s, data, "reboot")
	case "StartDisplay":
		d.handleStartDisplay(s, data)
	case "RegisterDisplay":
		d.handleRegisterDisplay(ctx, s, data)
	case "RemoveRegisteredDisplay":
		d.handleRemoveRegisteredDisplay(ctx, s, data)
	case "ModifyRegisteredDisplay":
		d.handleModifyRegisteredDisplay(ctx, s, data)
	case "ModifyShowcaseConfiguration":
		d.handleShowcaseConfiguration(s, data)
	case "getDisplayConfig":
		d.handleGetDisplayConfig(s, data)
	case "getAdminList":
		d.handleGetAdminList(s)
	default:
		metrics.ProtocolErrors.WithLabelValues("unknown_type").Inc()
		logging.Debug().
			Str("connection_id", s.ID).
			Str("type", env.Type).
			Msg("unknown message type")
		d.replyError(s, "Unknown message type")
	}
}

// decode unmarshals and validates a command payload. A false return means
// the Error reply was already sent.
func (d *Dispatcher) decode(s *Session, data []byte, dst interface{}) bool {
	if err := json.Unmarshal(data, dst); err != nil {
		metrics.ProtocolErrors.WithLabelValues("malformed").Inc()
		d.replyError(s, "Invalid message format")
		return false
	}
	if err := d.validate.Struct(dst); err != nil {
		metrics.ProtocolErrors.WithLabelValues("malformed").Inc()
		d.replyError(s, "Invalid message format")
		return false
	}
	return true
}

func (d *Dispatcher) replyError(s *Session, msg string) {
	s.Send(Reply{Type: ReplyError, Content: msg, TargetUser: s.Name})
}

func (d *Dispatcher) handleGetConnectedUsers(s *Session) {
	snapshot := d.registry.StatusSnapshot()
	content, err := json.Marshal(snapshot)
	if err != nil {
		d.replyError(s, "Failed to serialize fleet status")
		return
	}
	s.Send(Reply{Type: ReplyConnectedUsers, Content: string(content), TargetUser: s.Name})
}

func (d *Dispatcher) handleSendUpdateRequest(s *Session, data []byte) {
	var req targetRequest
	if !d.decode(s, data, &req) {
		return
	}
	if d.fanout.NotifyConfigUpdated(req.TargetUser) == 0 {
		d.replyError(s, "User not found")
		return
	}
	s.Send(Reply{Type: ReplySuccess, Content: "Update request sent", TargetUser: req.TargetUser})
}

func (d *Dispatcher) handlePrepareFileStream(s *Session, data []byte) {
	var req prepareFileStreamRequest
	if !d.decode(s, data, &req) {
		return
	}
	if err := d.store.PrepareSchedule(req.TargetUser, req.MediaType, req.ChangeTime); err != nil {
		logging.Error().Err(err).Str("kiosk", req.TargetUser).Msg("prepare file stream failed")
		d.replyError(s, "Failed to prepare file stream")
		return
	}
	s.Send(Reply{Type: ReplyFileStreamStarted, Content: "Ready to receive files", TargetUser: req.TargetUser})
}

func (d *Dispatcher) handleStartFileStream(s *Session, data []byte) {
	var req startFileStreamRequest
	if !d.decode(s, data, &req) {
		return
	}
	path, err := d.store.MediaFilePath(req.TargetUser, req.ChangeTime, req.FileName)
	if err != nil {
		logging.Error().Err(err).Str("kiosk", req.TargetUser).Msg("resolve upload path failed")
		d.replyError(s, "Failed to open file stream")
		return
	}
	if err := s.OpenUpload(path); err != nil {
		logging.Error().Err(err).Str("path", path).Msg("open upload failed")
		d.replyError(s, "Failed to open file stream")
		return
	}
	s.Send(Reply{Type: ReplyFileStreamStarted, Content: req.FileName, TargetUser: req.TargetUser})
}

func (d *Dispatcher) handleEndFileStream(s *Session) {
	open, err := s.FinishUpload()
	if !open {
		d.replyError(s, "No file stream in progress")
		return
	}
	if err != nil {
		logging.Error().Err(err).Str("connection_id", s.ID).Msg("finish upload failed")
		d.replyError(s, "Failed to store file")
		return
	}
	metrics.UploadsCompleted.Inc()
	s.Send(Reply{Type: ReplyFileArrived, Content: "File stored", TargetUser: s.Name})
}

func (d *Dispatcher) handleCreateImagePathConfig(s *Session, data []byte) {
	var req scheduleKeyRequest
	if !d.decode(s, data, &req) {
		return
	}
	if err := d.store.ReconcilePaths(req.TargetUser, req.ChangeTime); err != nil {
		logging.Error().Err(err).Str("kiosk", req.TargetUser).Msg("reconcile paths failed")
		d.replyError(s, "Failed to update image paths")
		return
	}
	s.Send(Reply{Type: ReplySuccess, Content: "Image paths updated", TargetUser: req.TargetUser})
}

func (d *Dispatcher) handleModifyImageOrder(s *Session, data []byte) {
	var req fileListRequest
	if !d.decode(s, data, &req) {
		return
	}
	if err := d.store.SetOrder(req.TargetUser, req.ChangeTime, req.FileNames); err != nil {
		logging.Error().Err(err).Str("kiosk", req.TargetUser).Msg("set order failed")
		d.replyError(s, "Failed to update image order")
		return
	}
	d.fanout.NotifyConfigUpdated(req.TargetUser)
	s.Send(Reply{Type: ReplyConfigUpdated, Content: "Image order updated", TargetUser: req.TargetUser})
}

func (d *Dispatcher) handleDeleteMedia(s *Session, data []byte) {
	var req fileListRequest
	if !d.decode(s, data, &req) {
		return
	}
	if err := d.store.DeleteMedia(req.TargetUser, req.ChangeTime, req.FileNames); err != nil {
		logging.Error().Err(err).Str("kiosk", req.TargetUser).Msg("delete media failed")
		d.replyError(s, "Failed to delete media")
		return
	}
	d.fanout.NotifyConfigUpdated(req.TargetUser)
	s.Send(Reply{Type: ReplyConfigUpdated, Content: "Media deleted", TargetUser: req.TargetUser})
}

func (d *Dispatcher) handleAddSchedule(s *Session, data []byte) {
	var req addScheduleRequest
	if !d.decode(s, data, &req) {
		return
	}
	if err := d.store.AddSchedule(req.TargetUser, req.Start, req.End); err != nil {
		logging.Error().Err(err).Str("kiosk", req.TargetUser).Msg("add schedule failed")
		d.replyError(s, "Failed to add schedule")
		return
	}
	d.fanout.NotifyConfigUpdated(req.TargetUser)
	s.Send(Reply{Type: ReplyConfigUpdated, Content: "Schedule added", TargetUser: req.TargetUser})
}

func (d *Dispatcher) handleEditSchedule(s *Session, data []byte) {
	var req editScheduleRequest
	if !d.decode(s, data, &req) {
		return
	}
	if err := d.store.EditSchedule(req.TargetUser, req.ChangeTime, req.Start, req.End); err != nil {
		logging.Error().Err(err).Str("kiosk", req.TargetUser).Msg("edit schedule failed")
		d.replyError(s, "Failed to edit schedule")
		return
	}
	d.fanout.NotifyConfigUpdated(req.TargetUser)
	s.Send(Reply{Type: ReplyConfigUpdated, Content: "Schedule updated", TargetUser: req.TargetUser})
}

func (d *Dispatcher) handleDeleteSchedule(s *Session, data []byte) {
	var req scheduleKeyRequest
	if !d.decode(s, data, &req) {
		return
	}
	if err := d.store.DeleteSchedule(req.TargetUser, req.ChangeTime); err != nil {
		logging.Error().Err(err).Str("kiosk", req.TargetUser).Msg("delete schedule failed")
		d.replyError(s, "Failed to delete schedule")
		return
	}
	d.fanout.NotifyConfigUpdated(req.TargetUser)
	s.Send(Reply{Type: ReplyConfigUpdated, Content: "Schedule deleted", TargetUser: req.TargetUser})
}

// handlePowerCommand runs shutdown or reboot against every live connection
// of the target kiosk. Entries whose command succeeded are removed
// proactively; the machine is expected to drop the socket. The reply mirrors
// the adapter outcome, with PartialSuccess when duplicate instances split.
func (d *Dispatcher) handlePowerCommand(s *Session, data []byte, action string) {
	var req targetRequest
	if !d.decode(s, data, &req) {
		return
	}

	conns := d.registry.ClientsByName(req.TargetUser)
	if len(conns) == 0 {
		d.replyError(s, "User not found")
		return
	}

	var succeeded, failed int
	var messages []string
	for _, conn := range conns {
		var res remote.Result
		switch action {
		case "shutdown":
			res = d.adapter.Shutdown(conn.IPAddress)
		case "reboot":
			res = d.adapter.Reboot(conn.IPAddress)
		}
		metrics.RemoteCommands.WithLabelValues(action, outcomeLabel(res.Success)).Inc()
		messages = append(messages, res.Message)

		if res.Success {
			succeeded++
			d.registry.RemoveClient(conn.ConnectionID)
			// Close before unregistering; the fanout can only reach
			// sessions it still tracks.
			d.fanout.CloseSession(conn.ConnectionID)
			d.fanout.Unregister(conn.ConnectionID)
		} else {
			failed++
		}
	}
	d.fanout.BroadcastFleetStatus()

	content := strings.Join(messages, "; ")
	switch {
	case failed == 0:
		s.Send(Reply{Type: ReplySuccess, Content: content, TargetUser: req.TargetUser})
	case succeeded == 0:
		s.Send(Reply{Type: ReplyError, Content: content, TargetUser: req.TargetUser})
	default:
		s.Send(Reply{Type: ReplyPartialSuccess, Content: content, TargetUser: req.TargetUser})
	}
}

func (d *Dispatcher) handleStartDisplay(s *Session, data []byte) {
	var req targetRequest
	if !d.decode(s, data, &req) {
		return
	}

	mac := d.lookupMacAddress(req.TargetUser)
	if mac == "" {
		d.replyError(s, "Display not registered")
		return
	}

	res := d.adapter.WakeOnLan(mac)
	metrics.RemoteCommands.WithLabelValues("wake", outcomeLabel(res.Success)).Inc()
	if !res.Success {
		s.Send(Reply{Type: ReplyError, Content: res.Message, TargetUser: req.TargetUser})
		return
	}
	s.Send(Reply{Type: ReplySuccess, Content: res.Message, TargetUser: req.TargetUser})
}

// lookupMacAddress resolves a kiosk name to a hardware address, preferring
// the persisted catalog so offline displays can still be woken.
func (d *Dispatcher) lookupMacAddress(kioskName string) string {
	displays, err := d.catalog.GetAll(context.Background())
	if err == nil {
		for _, display := range displays {
			if strings.EqualFold(display.KioskName, kioskName) ||
				strings.EqualFold(display.Nickname, kioskName) {
				return display.MacAddress
			}
		}
	}
	for _, conn := range d.registry.ClientsByName(kioskName) {
		if conn.MacAddress != "" {
			return conn.MacAddress
		}
	}
	return ""
}

func (d *Dispatcher) handleRegisterDisplay(ctx context.Context, s *Session, data []byte) {
	var req registerDisplayRequest
	if !d.decode(s, data, &req) {
		return
	}

	conns := d.registry.ClientsByName(req.TargetUser)
	if len(conns) == 0 {
		d.replyError(s, "User not found")
		return
	}

	registered := 0
	var failure string
	for _, conn := range conns {
		mac := conn.MacAddress
		if mac == "" {
			res := d.adapter.DiscoverMacAddress(conn.IPAddress)
			metrics.RemoteCommands.WithLabelValues("discover", outcomeLabel(res.Success)).Inc()
			if !res.Success {
				failure = res.Message
				continue
			}
			mac = res.Message
			d.registry.SetClientMacAddress(conn.ConnectionID, mac)
		}

		display := &models.RegisteredDisplay{
			KioskName:   conn.KioskName,
			MacAddress:  mac,
			Nickname:    req.TargetUser,
			Description: req.DisplayDescription,
		}
		if _, err := d.catalog.RegisterDisplay(ctx, display); err != nil {
			logging.Error().Err(err).Str("kiosk", conn.KioskName).Msg("catalog register failed")
			failure = "Failed to persist display registration"
			continue
		}
		registered++
	}

	if registered == 0 {
		d.replyError(s, failure)
		return
	}

	d.refreshFromCatalog(ctx)
	d.fanout.BroadcastFleetStatus()
	s.Send(Reply{Type: ReplySuccess, Content: "Display registered", TargetUser: req.TargetUser})
}

func (d *Dispatcher) handleRemoveRegisteredDisplay(ctx context.Context, s *Session, data []byte) {
	var req targetRequest
	if !d.decode(s, data, &req) {
		return
	}

	displays, err := d.catalog.GetAll(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("catalog list failed")
		d.replyError(s, "Failed to read display catalog")
		return
	}

	removed := 0
	for _, display := range displays {
		if !strings.EqualFold(display.KioskName, req.TargetUser) &&
			!strings.EqualFold(display.Nickname, req.TargetUser) {
			continue
		}
		count, err := d.catalog.Remove(ctx, display.ID)
		if err != nil {
			logging.Error().Err(err).Str("id", display.ID).Msg("catalog remove failed")
			d.replyError(s, "Failed to remove display")
			return
		}
		removed += count
	}
	if removed == 0 {
		d.replyError(s, "Display not registered")
		return
	}

	d.refreshFromCatalog(ctx)
	d.fanout.BroadcastFleetStatus()
	s.Send(Reply{Type: ReplySuccess, Content: "Display removed", TargetUser: req.TargetUser})
}

func (d *Dispatcher) handleModifyRegisteredDisplay(ctx context.Context, s *Session, data []byte) {
	var req modifyDisplayRequest
	if !d.decode(s, data, &req) {
		return
	}

	count, err := d.catalog.Modify(ctx, &models.RegisteredDisplay{
		ID:          req.ID,
		Nickname:    req.Nickname,
		Description: req.Description,
		MacAddress:  req.MacAddress,
	})
	if err != nil {
		logging.Error().Err(err).Str("id", req.ID).Msg("catalog modify failed")
		d.replyError(s, "Failed to modify display")
		return
	}
	if count == 0 {
		d.replyError(s, "Display not registered")
		return
	}

	d.refreshFromCatalog(ctx)
	d.fanout.BroadcastFleetStatus()
	s.Send(Reply{Type: ReplySuccess, Content: "Display modified", TargetUser: s.Name})
}

func (d *Dispatcher) handleShowcaseConfiguration(s *Session, data []byte) {
	var req showcaseConfigRequest
	if !d.decode(s, data, &req) {
		return
	}
	err := d.store.SetPresentation(req.TargetUser,
		req.TransitionStyle, req.TransitionDuration, req.ImageFit, req.ImageInterval)
	if err != nil {
		logging.Error().Err(err).Str("kiosk", req.TargetUser).Msg("set presentation failed")
		d.replyError(s, "Failed to update showcase configuration")
		return
	}
	d.fanout.NotifyConfigUpdated(req.TargetUser)
	s.Send(Reply{Type: ReplyConfigUpdated, Content: "Showcase configuration updated", TargetUser: req.TargetUser})
}

func (d *Dispatcher) handleGetDisplayConfig(s *Session, data []byte) {
	var req displayConfigRequest
	if !d.decode(s, data, &req) {
		return
	}
	target := req.TargetUser
	if target == "" {
		if s.Role != RoleClient {
			d.replyError(s, "Invalid message format")
			return
		}
		target = s.Name
	}

	doc, err := d.store.RawDocument(target)
	if err != nil {
		logging.Error().Err(err).Str("kiosk", target).Msg("read display config failed")
		d.replyError(s, "Failed to read display config")
		return
	}
	s.Send(Reply{Type: ReplyDisplayConfig, Content: string(doc), TargetUser: target})
}

func (d *Dispatcher) handleGetAdminList(s *Session) {
	content, err := json.Marshal(d.accounts.GetAll())
	if err != nil {
		d.replyError(s, "Failed to serialize admin list")
		return
	}
	s.Send(Reply{Type: ReplyAdminList, Content: string(content), TargetUser: s.Name})
}

// refreshFromCatalog reloads the catalog snapshot into the registry so live
// connections pick up registration changes without reconnecting.
func (d *Dispatcher) refreshFromCatalog(ctx context.Context) {
	displays, err := d.catalog.GetAll(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("catalog refresh failed")
		return
	}
	d.registry.RefreshRegisteredDisplays(displays)
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
