// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

var (
	// ErrUnknownConfigField marks a YAML key that maps to no config field.
	ErrUnknownConfigField = errors.New("unknown config field")
	// ErrInvalidEnv marks an HDMERGE_* variable whose value cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment override")
)
