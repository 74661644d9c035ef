// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package websocket

// Reply is the uniform outgoing envelope. Content carries either a plain
// message or a serialized JSON document depending on Type.
type Reply struct {
	Type       string `json:"type"`
	Content    string `json:"content"`
	TargetUser string `json:"targetUser"`
}

// Reply types.
const (
	ReplySuccess            = "Success"
	ReplyError              = "Error"
	ReplyPartialSuccess     = "PartialSuccess"
	ReplyConfigUpdated      = "ConfigUpdated"
	ReplyFileStreamStarted  = "fileStreamStarted"
	ReplyFileArrived        = "fileArrived"
	ReplyConnectedUsers     = "connectedUsers"
	ReplyDisplayConfig      = "displayConfig"
	ReplyAdminList          = "AdminList"
	ReplyConnectionAccepted = "ConnectionAccepted"

	// pushConfigUpdated tells a kiosk to re-fetch its configuration.
	pushConfigUpdated = "configUpdated"
)

// envelope is the incoming frame header; the payload fields are decoded a
// second time into the per-command request struct.
type envelope struct {
	Type string `json:"type"`
}

// Request payloads. changeTime is the schedule key; empty addresses the
// default schedule.

type targetRequest struct {
	TargetUser string `json:"targetUser" validate:"required"`
}

type prepareFileStreamRequest struct {
	TargetUser string `json:"targetUser" validate:"required"`
	MediaType  string `json:"mediaType" validate:"required,oneof=image video"`
	ChangeTime string `json:"changeTime"`
}

type startFileStreamRequest struct {
	TargetUser string `json:"targetUser" validate:"required"`
	FileName   string `json:"fileName" validate:"required"`
	ChangeTime string `json:"changeTime"`
}

type fileListRequest struct {
	TargetUser string   `json:"targetUser" validate:"required"`
	ChangeTime string   `json:"changeTime"`
	FileNames  []string `json:"fileNames" validate:"required"`
}

type scheduleKeyRequest struct {
	TargetUser string `json:"targetUser" validate:"required"`
	ChangeTime string `json:"changeTime"`
}

type addScheduleRequest struct {
	TargetUser string `json:"targetUser" validate:"required"`
	Start      string `json:"start" validate:"required"`
	End        string `json:"end" validate:"required"`
}

type editScheduleRequest struct {
	TargetUser string `json:"targetUser" validate:"required"`
	ChangeTime string `json:"changeTime" validate:"required"`
	Start      string `json:"start" validate:"required"`
	End        string `json:"end" validate:"required"`
}

type registerDisplayRequest struct {
	TargetUser         string `json:"targetUser" validate:"required"`
	DisplayDescription string `json:"displayDescription"`
}

type modifyDisplayRequest struct {
	ID          string `json:"id" validate:"required"`
	Nickname    string `json:"nickName" validate:"required"`
	Description string `json:"description"`
	MacAddress  string `json:"macAddress"`
}

type showcaseConfigRequest struct {
	TargetUser         string `json:"targetUser" validate:"required"`
	TransitionStyle    string `json:"transitionStyle" validate:"required"`
	TransitionDuration int    `json:"transitionDuration" validate:"min=0"`
	ImageFit           string `json:"imageFit" validate:"required"`
	ImageInterval      int    `json:"imageInterval" validate:"min=1"`
}

type displayConfigRequest struct {
	TargetUser string `json:"targetUser"`
}
