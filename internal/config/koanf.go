// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/kioskfleet/config.yaml",
	"/etc/kioskfleet/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration with layered sources (highest priority wins):
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envAliases maps flat legacy variable names to koanf paths.
var envAliases = map[string]string{
	"HTTP_PORT":  "server.port",
	"MEDIA_ROOT": "media.root",
	"JWT_SECRET": "security.jwt_secret",
	"AUTH_MODE":  "security.auth_mode",
	"LOG_LEVEL":  "logging.level",
	"LOG_FORMAT": "logging.format",
	"LOG_CALLER": "logging.caller",
}

// envSections lists the section prefixes recognized in env variable names.
var envSections = []string{"SERVER_", "MEDIA_", "SSH_", "SECURITY_", "CATALOG_", "LOGGING_"}

// envTransformFunc maps environment variable names to koanf config paths:
//
//	SERVER_SHUTDOWN_TIMEOUT -> server.shutdown_timeout
//	SSH_USERNAME            -> ssh.username
//	JWT_SECRET              -> security.jwt_secret (alias)
//
// Variables outside the known sections and aliases are ignored.
func envTransformFunc(key string) string {
	if path, ok := envAliases[key]; ok {
		return path
	}
	for _, section := range envSections {
		if strings.HasPrefix(key, section) {
			prefix := strings.ToLower(strings.TrimSuffix(section, "_"))
			rest := strings.ToLower(strings.TrimPrefix(key, section))
			return prefix + "." + rest
		}
	}
	return ""
}
