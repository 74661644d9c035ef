// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

// Command server runs the kiosk fleet backend: the websocket control and
// device endpoints, the display config store and the remote power adapter.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/szbani/kioskfleet/internal/accounts"
	"github.com/szbani/kioskfleet/internal/api"
	"github.com/szbani/kioskfleet/internal/auth"
	"github.com/szbani/kioskfleet/internal/catalog"
	"github.com/szbani/kioskfleet/internal/config"
	"github.com/szbani/kioskfleet/internal/configstore"
	"github.com/szbani/kioskfleet/internal/logging"
	"github.com/szbani/kioskfleet/internal/registry"
	"github.com/szbani/kioskfleet/internal/remote"
	"github.com/szbani/kioskfleet/internal/supervisor"
	"github.com/szbani/kioskfleet/internal/supervisor/services"
	"github.com/szbani/kioskfleet/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kioskfleet: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("media_root", cfg.Media.Root).
		Msg("starting kioskfleet server")

	var cat catalog.Catalog
	var badgerCat *catalog.BadgerCatalog
	if cfg.Catalog.Dir != "" {
		badgerCat, err = catalog.OpenBadger(cfg.Catalog.Dir)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		cat = badgerCat
	} else {
		logging.Warn().Msg("no catalog dir configured, display registrations are not persisted")
		cat = catalog.NewMemory()
	}
	defer cat.Close()

	displays, err := cat.GetAll(context.Background())
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	reg := registry.New(displays)
	store := configstore.New(cfg.Media.Root)
	adapter := remote.New(cfg.SSH)
	dir := accounts.NewStatic(cfg.Accounts)

	var jwtManager *auth.JWTManager
	if cfg.Security.AuthMode == "jwt" {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			return fmt.Errorf("init auth: %w", err)
		}
	} else {
		logging.Warn().Msg("auth mode none, control endpoint is unauthenticated")
	}

	fanout := websocket.NewFanout(reg)
	dispatcher := websocket.NewDispatcher(reg, store, adapter, cat, dir, fanout)
	handlers := websocket.NewHandlers(reg, fanout, dispatcher, adapter, dir, jwtManager)
	router := api.NewRouter(handlers)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	if badgerCat != nil {
		tree.AddMaintenanceService(services.NewMaintenanceService("catalog-gc", 5*time.Minute, badgerCat))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}

	logging.Info().Msg("kioskfleet server stopped")
	return nil
}
