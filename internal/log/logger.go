// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log owns the process-wide zerolog logger and the correlation fields
// (request, session, source, trace) attached to request-scoped log lines.
package log

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config configures the global logger. Zero values fall back to info level,
// stdout and the service name "hdmerge".
type Config struct {
	Level   string
	Output  io.Writer
	Service string
	Version string
}

var base atomic.Pointer[zerolog.Logger]

// Configure replaces the global logger. The daemon calls it once with safe
// defaults and again once the configuration is loaded. An unparseable level
// keeps info.
func Configure(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	service := cfg.Service
	if service == "" {
		service = "hdmerge"
	}

	l := zerolog.New(out).With().
		Timestamp().
		Str("service", service).
		Str("version", cfg.Version).
		Logger()
	base.Store(&l)
}

// WithComponent returns a child of the global logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return base.Load().With().Str(FieldComponent, component).Logger()
}

func init() {
	Configure(Config{})
}
