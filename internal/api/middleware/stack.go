// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package middleware provides the HTTP ingress middleware for the hdmerge API.
package middleware

import (
	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/hdmerge/internal/log"
)

// Options selects the optional layers of Stack. Recovery, request ids,
// metrics and access logs are always on.
type Options struct {
	CORSOrigins    []string // empty disables CORS
	Hardening      bool
	TracingService string // empty disables tracing
}

// Stack returns the ingress chain, outermost first. Rate limiting is not part
// of it; routes opt in per group.
func Stack(opts Options) chi.Middlewares {
	mws := chi.Middlewares{Recoverer, RequestID}
	if len(opts.CORSOrigins) > 0 {
		mws = append(mws, CrossOrigin(opts.CORSOrigins))
	}
	if opts.Hardening {
		mws = append(mws, Hardening())
	}
	mws = append(mws, Metrics())
	if opts.TracingService != "" {
		mws = append(mws, Tracing(opts.TracingService))
	}
	// Innermost so access lines carry the trace id.
	return append(mws, log.Middleware())
}
