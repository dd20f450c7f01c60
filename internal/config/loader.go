// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/hdmerge/internal/log"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HDMERGE_"

// Loader builds an AppConfig with precedence env > file > defaults.
type Loader struct {
	configPath string
	version    string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a loader. An empty configPath skips the file stage.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath: configPath,
		version:    version,
		lookupEnv:  os.LookupEnv,
	}
}

// Load builds the configuration: defaults, then the YAML file (strict), then
// environment overrides, then validation. The returned config is only usable
// when err is nil.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg. Unknown fields are fatal so that a
// misspelled key never silently falls back to a default.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// applyEnv layers HDMERGE_* overrides onto cfg.
func (l *Loader) applyEnv(cfg *AppConfig) error {
	e := newEnvOverrides(log.WithComponent("config"))
	e.lookup = l.lookupEnv

	overrideEnv(e, "LISTEN_ADDR", &cfg.ListenAddr, asString)
	overrideEnv(e, "TLS_CERT", &cfg.TLSCert, asString)
	overrideEnv(e, "TLS_KEY", &cfg.TLSKey, asString)
	overrideEnv(e, "SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout, asDuration)
	overrideEnv(e, "LOG_LEVEL", &cfg.LogLevel, asString)

	overrideEnv(e, "FFMPEG_BIN", &cfg.FFmpeg.Bin, asString)
	overrideEnv(e, "FFMPEG_KILL_TIMEOUT", &cfg.FFmpeg.KillTimeout, asDuration)
	overrideEnv(e, "MAX_SESSIONS", &cfg.FFmpeg.MaxSessions, asInt)
	overrideEnv(e, "FFMPEG_STDERR_LINES", &cfg.FFmpeg.StderrLines, asInt)

	overrideEnv(e, "YTDLP_BIN", &cfg.Extractor.Bin, asString)
	overrideEnv(e, "YTDLP_TIMEOUT", &cfg.Extractor.Timeout, asDuration)

	overrideEnv(e, "RESOLVE_RATE", &cfg.Resolver.RatePerSecond, asFloat)
	overrideEnv(e, "RESOLVE_BURST", &cfg.Resolver.Burst, asInt)
	overrideEnv(e, "BREAKER_THRESHOLD", &cfg.Resolver.BreakerThreshold, asInt)
	overrideEnv(e, "BREAKER_RESET", &cfg.Resolver.BreakerReset, asDuration)
	overrideEnv(e, "RESOLVE_TIMEOUT", &cfg.Resolver.Timeout, asDuration)

	overrideEnv(e, "CACHE_BACKEND", &cfg.Cache.Backend, asString)
	overrideEnv(e, "CACHE_TTL", &cfg.Cache.TTL, asDuration)
	overrideEnv(e, "CACHE_CLEANUP_INTERVAL", &cfg.Cache.CleanupInterval, asDuration)
	overrideEnv(e, "REDIS_ADDR", &cfg.Cache.Redis.Addr, asString)
	overrideEnv(e, "REDIS_PASSWORD", &cfg.Cache.Redis.Password, asString)
	overrideEnv(e, "REDIS_DB", &cfg.Cache.Redis.DB, asInt)
	overrideEnv(e, "REDIS_PREFIX", &cfg.Cache.Redis.Prefix, asString)

	overrideEnv(e, "STREAM_RATE_LIMIT", &cfg.HTTP.StreamRateLimit, asInt)
	overrideEnv(e, "STREAM_RATE_WINDOW", &cfg.HTTP.StreamRateWindow, asDuration)
	overrideEnv(e, "RATE_LIMIT_WHITELIST", &cfg.HTTP.RateLimitWhitelist, asList)
	overrideEnv(e, "CORS_ORIGINS", &cfg.HTTP.CORSOrigins, asList)
	overrideEnv(e, "SECURITY_HEADERS", &cfg.HTTP.SecurityHeaders, asBool)
	overrideEnv(e, "MERGED_CONTENT_LENGTH", &cfg.HTTP.MergedContentLength, asBool)

	overrideEnv(e, "TRACING_ENABLED", &cfg.Telemetry.Enabled, asBool)
	overrideEnv(e, "TRACING_EXPORTER", &cfg.Telemetry.ExporterType, asString)
	overrideEnv(e, "TRACING_ENDPOINT", &cfg.Telemetry.Endpoint, asString)
	overrideEnv(e, "TRACING_SAMPLING_RATE", &cfg.Telemetry.SamplingRate, asFloat)
	overrideEnv(e, "ENVIRONMENT", &cfg.Telemetry.Environment, asString)

	if len(e.applied) > 0 {
		e.logger.Info().
			Str(log.FieldEvent, "config.env_overrides").
			Strs("keys", e.applied).
			Msg("applied environment overrides")
	}
	return e.Err()
}
