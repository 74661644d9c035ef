// Kioskfleet - Fleet Management for Networked Kiosk Displays
// Copyright 2026 Szabolcs B. (szbani)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/szbani/kioskfleet

// Package api provides HTTP routing using the Chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ws "github.com/szbani/kioskfleet/internal/websocket"
)

// Router assembles the HTTP surface: the two websocket endpoints, health
// probes and metrics.
type Router struct {
	handlers *ws.Handlers
}

// NewRouter creates a router over the protocol handlers.
func NewRouter(handlers *ws.Handlers) *Router {
	return &Router{handlers: handlers}
}

// Setup builds the route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Protocol endpoints. Upgrades manage their own lifetime; no timeout
	// middleware here or long-lived connections would be severed.
	r.Get("/ws", router.handlers.Admin)
	r.Get("/showcase", router.handlers.Client)

	// Health probes are unauthenticated but rate limited.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/live", router.healthLive)
		r.Get("/ready", router.healthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (router *Router) healthLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (router *Router) healthReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
