// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/szbani/kioskfleet/internal/config"
)

func newTestManager(t *testing.T, timeout time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		SessionTimeout: timeout,
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return m
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Fatal("empty secret accepted")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, err := m.GenerateToken("szbani", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Username != "szbani" || claims.Role != "admin" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	m := newTestManager(t, -time.Minute)

	token, err := m.GenerateToken("szbani", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestValidateTamperedToken(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, err := m.GenerateToken("szbani", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"
	if _, err := m.ValidateToken(tampered); err == nil {
		t.Fatal("tampered token accepted")
	}
}

func TestValidateWrongSecret(t *testing.T) {
	m := newTestManager(t, time.Hour)
	other, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      strings.Repeat("x", 32),
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}

	token, err := other.GenerateToken("szbani", "admin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Fatal("token signed with a different secret accepted")
	}
}

func TestValidateGarbage(t *testing.T) {
	m := newTestManager(t, time.Hour)
	if _, err := m.ValidateToken("not.a.token"); err == nil {
		t.Fatal("garbage token accepted")
	}
}
