// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/hdmerge/internal/config"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddr string
	TLSCert    string
	TLSKey     string

	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	ShutdownTimeout   time.Duration
}

// ServerConfigFrom derives the listener settings from the application config.
// There is no write timeout: merged streams run as long as the media does.
func ServerConfigFrom(cfg config.AppConfig) ServerConfig {
	return ServerConfig{
		ListenAddr:        cfg.ListenAddr,
		TLSCert:           cfg.TLSCert,
		TLSKey:            cfg.TLSKey,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ShutdownTimeout:   cfg.ShutdownTimeout,
	}
}

// TLSEnabled reports whether both halves of the key pair are configured.
func (c ServerConfig) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// Handler serves every route, including probes and metrics.
	Handler http.Handler
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.Handler == nil {
		return ErrMissingHandler
	}
	return nil
}
