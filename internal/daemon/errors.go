// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

// Wiring errors, returned before anything listens.
var (
	ErrMissingLogger  = errors.New("daemon: logger is disabled or unset")
	ErrMissingHandler = errors.New("daemon: no HTTP handler")
	ErrMissingManager = errors.New("daemon: app has no server manager")
)

// Lifecycle errors.
var (
	ErrManagerNotStarted = errors.New("daemon: shutdown before start")
	ErrAlreadyStarted    = errors.New("daemon: server already started")
)
