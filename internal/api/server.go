// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the hdmerge HTTP endpoints: merged media streams, format
// diagnostics, probes and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/hdmerge/internal/api/middleware"
	"github.com/ManuGH/hdmerge/internal/delivery"
	"github.com/ManuGH/hdmerge/internal/health"
	"github.com/ManuGH/hdmerge/internal/media"
)

// Deliverer resolves sources and streams them. *delivery.Adapter implements it.
type Deliverer interface {
	Inspect(ctx context.Context, sourceID string) (*delivery.Plan, error)
	Prepare(ctx context.Context, sourceID string) (*delivery.Plan, error)
	Deliver(ctx context.Context, w http.ResponseWriter, plan *delivery.Plan) (int64, error)
	Headers(sel media.Selection) http.Header
}

// Config configures the HTTP surface.
type Config struct {
	// StreamRateLimit caps requests per client IP per StreamRateWindow on
	// /api/v1; zero disables the limit.
	StreamRateLimit    int
	StreamRateWindow   time.Duration
	RateLimitWhitelist []string

	CORSOrigins     []string
	SecurityHeaders bool

	// TracingService names server spans; empty disables HTTP tracing.
	TracingService string
}

// Server owns the router.
type Server struct {
	cfg       Config
	deliverer Deliverer
	health    *health.Manager
	router    chi.Router
}

// New builds the server and its routes.
func New(cfg Config, d Deliverer, h *health.Manager) *Server {
	s := &Server{cfg: cfg, deliverer: d, health: h}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Stack(middleware.Options{
		CORSOrigins:    s.cfg.CORSOrigins,
		Hardening:      s.cfg.SecurityHeaders,
		TracingService: s.cfg.TracingService,
	})...)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Scope:        "stream",
			RequestLimit: s.cfg.StreamRateLimit,
			WindowSize:   s.cfg.StreamRateWindow,
			Whitelist:    s.cfg.RateLimitWhitelist,
		}))

		r.Get("/stream", s.handleStreamByURL)
		r.Head("/stream", s.handleStreamByURL)
		r.Get("/stream/{sourceID}", s.handleStream)
		r.Head("/stream/{sourceID}", s.handleStream)

		r.Get("/formats", s.handleFormatsByURL)
		r.Get("/formats/{sourceID}", s.handleFormats)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found", Code: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", Code: "method_not_allowed"})
	})
	return r
}
