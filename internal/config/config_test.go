// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// testSecret is long enough to satisfy the 32-character JWT secret floor.
const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8585 {
		t.Errorf("Server.Port = %d, want 8585", cfg.Server.Port)
	}
	if cfg.Server.Addr() != "0.0.0.0:8585" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
	if cfg.SSH.Port != 22 || cfg.SSH.WakeBroadcastAddr != "255.255.255.255:9" {
		t.Errorf("unexpected SSH defaults: %+v", cfg.SSH)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("MEDIA_ROOT", "/tmp/kiosk-media")
	t.Setenv("SSH_USERNAME", "fleetadmin")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Media.Root != "/tmp/kiosk-media" {
		t.Errorf("Media.Root = %q", cfg.Media.Root)
	}
	if cfg.SSH.Username != "fleetadmin" {
		t.Errorf("SSH.Username = %q", cfg.SSH.Username)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.Server.ShutdownTimeout)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"server:",
		"  port: 7070",
		"security:",
		"  auth_mode: none",
		"accounts:",
		"  - id: a1",
		"    username: root-admin",
		"    email: admin@example.com",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if len(cfg.Accounts) != 1 || cfg.Accounts[0].Username != "root-admin" {
		t.Errorf("Accounts = %+v", cfg.Accounts)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) { c.Security.JWTSecret = testSecret },
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Security.JWTSecret = testSecret; c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "missing media root",
			mutate:  func(c *Config) { c.Security.JWTSecret = testSecret; c.Media.Root = "" },
			wantErr: "media.root",
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.Security.JWTSecret = "short" },
			wantErr: "jwt_secret",
		},
		{
			name:    "unknown auth mode",
			mutate:  func(c *Config) { c.Security.AuthMode = "basic" },
			wantErr: "auth_mode",
		},
		{
			name: "duplicate accounts",
			mutate: func(c *Config) {
				c.Security.AuthMode = "none"
				c.Accounts = []AccountConfig{{Username: "a"}, {Username: "a"}}
			},
			wantErr: "duplicate account",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}
