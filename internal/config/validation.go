// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/hdmerge/internal/validate"
)

// Validate reports every problem in cfg at once. The returned error is a
// validate.Problems.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Listen("listen_addr", cfg.ListenAddr)
	v.Check((cfg.TLSCert == "") == (cfg.TLSKey == ""), "tls_cert", cfg.TLSCert,
		"tls_cert and tls_key must be set together")
	v.Timeout("shutdown_timeout", cfg.ShutdownTimeout)
	v.LogLevel("log_level", cfg.LogLevel)

	v.Required("ffmpeg.bin", cfg.FFmpeg.Bin)
	v.Timeout("ffmpeg.kill_timeout", cfg.FFmpeg.KillTimeout)
	validate.Between(v, "ffmpeg.max_sessions", cfg.FFmpeg.MaxSessions, 1, 256)
	validate.Between(v, "ffmpeg.stderr_lines", cfg.FFmpeg.StderrLines, 1, 4096)

	v.Required("extractor.bin", cfg.Extractor.Bin)
	v.Timeout("extractor.timeout", cfg.Extractor.Timeout)

	validate.AtLeast(v, "resolver.rate_per_second", cfg.Resolver.RatePerSecond, 0)
	validate.AtLeast(v, "resolver.burst", cfg.Resolver.Burst, 0)
	validate.AtLeast(v, "resolver.breaker_threshold", cfg.Resolver.BreakerThreshold, 0)
	if cfg.Resolver.BreakerThreshold > 0 {
		v.Timeout("resolver.breaker_reset", cfg.Resolver.BreakerReset)
	}
	v.Timeout("resolver.timeout", cfg.Resolver.Timeout)

	v.Enum("cache.backend", cfg.Cache.Backend, CacheBackendMemory, CacheBackendRedis, CacheBackendNone)
	validate.AtLeast(v, "cache.ttl", cfg.Cache.TTL, time.Duration(0))
	switch cfg.Cache.Backend {
	case CacheBackendMemory:
		v.Timeout("cache.cleanup_interval", cfg.Cache.CleanupInterval)
	case CacheBackendRedis:
		v.Listen("cache.redis.addr", cfg.Cache.Redis.Addr)
		validate.Between(v, "cache.redis.db", cfg.Cache.Redis.DB, 0, 15)
	}

	validate.AtLeast(v, "http.stream_rate_limit", cfg.HTTP.StreamRateLimit, 0)
	if cfg.HTTP.StreamRateLimit > 0 {
		v.Timeout("http.stream_rate_window", cfg.HTTP.StreamRateWindow)
	}
	v.Networks("http.rate_limit_whitelist", cfg.HTTP.RateLimitWhitelist)

	if cfg.Telemetry.Enabled {
		v.Enum("telemetry.exporter", cfg.Telemetry.ExporterType, "grpc", "http")
		v.Required("telemetry.endpoint", cfg.Telemetry.Endpoint)
		validate.Between(v, "telemetry.sampling_rate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	if _, err := cfg.Policy(); err != nil {
		v.Add("policy", nil, "%v", err)
	}

	return v.Err()
}
