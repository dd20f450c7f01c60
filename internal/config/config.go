// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the hdmerge daemon configuration: built-in defaults,
// then a strict YAML file, then HDMERGE_* environment overrides, then validation.
package config

import "time"

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	ListenAddr      string        `yaml:"listen_addr"`
	TLSCert         string        `yaml:"tls_cert"`
	TLSKey          string        `yaml:"tls_key"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`

	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Cache     CacheConfig     `yaml:"cache"`
	HTTP      HTTPConfig      `yaml:"http"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Selection PolicyConfig    `yaml:"policy"`
}

// FFmpegConfig configures the merge engine.
type FFmpegConfig struct {
	Bin         string        `yaml:"bin"`
	KillTimeout time.Duration `yaml:"kill_timeout"`
	MaxSessions int           `yaml:"max_sessions"`
	StderrLines int           `yaml:"stderr_lines"`
}

// ExtractorConfig configures the yt-dlp format extractor.
type ExtractorConfig struct {
	Bin     string        `yaml:"bin"`
	Timeout time.Duration `yaml:"timeout"`
}

// ResolverConfig configures the guards in front of the extractor.
type ResolverConfig struct {
	RatePerSecond    float64       `yaml:"rate_per_second"` // 0 = unlimited
	Burst            int           `yaml:"burst"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerReset     time.Duration `yaml:"breaker_reset"`
	Timeout          time.Duration `yaml:"timeout"`
}

// CacheConfig selects and tunes the catalog cache.
type CacheConfig struct {
	Backend         string        `yaml:"backend"` // memory, redis or none
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	Redis           RedisConfig   `yaml:"redis"`
}

// RedisConfig locates the Redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// HTTPConfig tunes the HTTP ingress.
type HTTPConfig struct {
	// StreamRateLimit caps stream and formats requests per client IP per
	// StreamRateWindow; 0 disables the limit.
	StreamRateLimit    int           `yaml:"stream_rate_limit"`
	StreamRateWindow   time.Duration `yaml:"stream_rate_window"`
	RateLimitWhitelist []string      `yaml:"rate_limit_whitelist"`
	CORSOrigins        []string      `yaml:"cors_origins"`
	SecurityHeaders    bool          `yaml:"security_headers"`
	// MergedContentLength announces audio+video sizes on non-fragmented
	// merges. Remuxed output rarely matches that sum; false sends chunked.
	MergedContentLength bool `yaml:"merged_content_length"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter"` // grpc or http
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
}

// PolicyConfig is the YAML form of the selection policy.
type PolicyConfig struct {
	TargetLabel string       `yaml:"target_label"`
	TargetTier  string       `yaml:"target_tier"`
	Rules       []RuleConfig `yaml:"rules"`
}

// RuleConfig is one container row of the pairing table.
type RuleConfig struct {
	Container string   `yaml:"container"`
	Audio     []string `yaml:"audio"`
	Video     []string `yaml:"video"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr:      ":8080",
		ShutdownTimeout: 15 * time.Second,
		LogLevel:        "info",
		FFmpeg: FFmpegConfig{
			Bin:         "ffmpeg",
			KillTimeout: 5 * time.Second,
			MaxSessions: 4,
			StderrLines: 64,
		},
		Extractor: ExtractorConfig{
			Bin:     "yt-dlp",
			Timeout: 30 * time.Second,
		},
		Resolver: ResolverConfig{
			RatePerSecond:    2,
			Burst:            4,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
			Timeout:          45 * time.Second,
		},
		Cache: CacheConfig{
			Backend:         CacheBackendMemory,
			TTL:             10 * time.Minute,
			CleanupInterval: time.Minute,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "hdmerge:",
			},
		},
		HTTP: HTTPConfig{
			StreamRateLimit:  30,
			StreamRateWindow: time.Minute,
			SecurityHeaders:  true,

			MergedContentLength: true,
		},
		Telemetry: TelemetryConfig{
			ExporterType: "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1,
			Environment:  "production",
		},
		Selection: defaultPolicyConfig(),
	}
}
