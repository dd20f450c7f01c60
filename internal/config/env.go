// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// envOverrides applies HDMERGE_* variables on top of a config. A blank
// variable counts as unset. Parse failures are collected rather than
// silently falling back, so a typo in the environment fails startup the same
// way a typo in the file does.
type envOverrides struct {
	logger  zerolog.Logger
	lookup  func(string) (string, bool)
	applied []string
	errs    []error
}

func newEnvOverrides(logger zerolog.Logger) *envOverrides {
	return &envOverrides{logger: logger, lookup: os.LookupEnv}
}

// Err joins every parse failure, each wrapping ErrInvalidEnv.
func (e *envOverrides) Err() error {
	return errors.Join(e.errs...)
}

// overrideEnv replaces *dst with the parsed value of EnvPrefix+name when set.
func overrideEnv[T any](e *envOverrides, name string, dst *T, parse func(string) (T, error)) {
	key := EnvPrefix + name
	raw, ok := e.lookup(key)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return
	}

	v, err := parse(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q: %w", ErrInvalidEnv, key, raw, err))
		return
	}
	*dst = v
	e.applied = append(e.applied, key)

	ev := e.logger.Debug().Str("key", key)
	if isSecret(key) {
		ev = ev.Bool("redacted", true)
	} else {
		ev = ev.Str("value", raw)
	}
	ev.Msg("environment override")
}

func isSecret(key string) bool {
	k := strings.ToUpper(key)
	return strings.Contains(k, "PASSWORD") || strings.Contains(k, "TOKEN") || strings.Contains(k, "SECRET")
}

func asString(s string) (string, error) { return s, nil }

func asInt(s string) (int, error) { return strconv.Atoi(s) }

func asFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func asDuration(s string) (time.Duration, error) { return time.ParseDuration(s) }

// asBool also accepts yes/no and on/off.
func asBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}

// asList splits on commas and drops blank items.
func asList(s string) ([]string, error) {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}
