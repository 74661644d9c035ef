// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

// Package config loads and validates Kioskfleet configuration using Koanf v2
// with layered sources: built-in defaults, an optional YAML file, then
// environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Media    MediaConfig    `koanf:"media"`
	SSH      SSHConfig      `koanf:"ssh"`
	Security SecurityConfig `koanf:"security"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Logging  LoggingConfig  `koanf:"logging"`

	// Accounts lists the admin accounts surfaced to connected admins.
	// Credential storage and password policy live outside this process.
	Accounts []AccountConfig `koanf:"accounts"`
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MediaConfig holds the on-disk layout for display media and config documents.
type MediaConfig struct {
	// Root is the directory holding one subdirectory per kiosk name.
	Root string `koanf:"root"`
}

// SSHConfig holds credentials and timeouts for remote power/OS commands.
// Credentials are supplied out-of-band (env or config file), never persisted
// by this process.
type SSHConfig struct {
	Username       string        `koanf:"username"`
	Password       string        `koanf:"password"`
	Port           int           `koanf:"port"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	CommandTimeout time.Duration `koanf:"command_timeout"`

	// WakeBroadcastAddr is the datagram target for Wake-on-LAN packets.
	WakeBroadcastAddr string `koanf:"wake_broadcast_addr"`
}

// SecurityConfig holds admin-token settings for the control endpoint.
type SecurityConfig struct {
	// AuthMode is "jwt" or "none". "none" is for development only.
	AuthMode string `koanf:"auth_mode"`

	// JWTSecret signs and verifies admin tokens (HS256). Required when
	// AuthMode is "jwt"; minimum 32 characters.
	JWTSecret string `koanf:"jwt_secret"`

	SessionTimeout time.Duration `koanf:"session_timeout"`
}

// CatalogConfig holds the embedded registered-display catalog settings.
type CatalogConfig struct {
	// Dir is the BadgerDB directory. Empty selects an in-memory catalog,
	// which loses registrations on restart.
	Dir string `koanf:"dir"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// AccountConfig is one admin account entry.
type AccountConfig struct {
	ID       string `koanf:"id"`
	Username string `koanf:"username"`
	Email    string `koanf:"email"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8585,
			ShutdownTimeout: 10 * time.Second,
		},
		Media: MediaConfig{
			Root: "/data/media",
		},
		SSH: SSHConfig{
			Username:          "",
			Password:          "",
			Port:              22,
			ConnectTimeout:    5 * time.Second,
			CommandTimeout:    30 * time.Second,
			WakeBroadcastAddr: "255.255.255.255:9",
		},
		Security: SecurityConfig{
			AuthMode:       "jwt",
			JWTSecret:      "",
			SessionTimeout: 24 * time.Hour,
		},
		Catalog: CatalogConfig{
			Dir: "/data/catalog",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Media.Root == "" {
		return fmt.Errorf("media.root is required")
	}

	switch c.Security.AuthMode {
	case "jwt":
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters when auth_mode is jwt")
		}
	case "none":
		// Development mode; the control endpoint trusts the supplied name.
	default:
		return fmt.Errorf("security.auth_mode must be jwt or none, got %q", c.Security.AuthMode)
	}

	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port must be between 1 and 65535, got %d", c.SSH.Port)
	}

	seen := make(map[string]struct{}, len(c.Accounts))
	for _, acct := range c.Accounts {
		if acct.Username == "" {
			return fmt.Errorf("accounts entries require a username")
		}
		if _, dup := seen[acct.Username]; dup {
			return fmt.Errorf("duplicate account username %q", acct.Username)
		}
		seen[acct.Username] = struct{}{}
	}

	return nil
}
