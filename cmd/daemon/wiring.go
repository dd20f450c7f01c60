// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/hdmerge/internal/api"
	"github.com/ManuGH/hdmerge/internal/cache"
	"github.com/ManuGH/hdmerge/internal/catalog"
	"github.com/ManuGH/hdmerge/internal/config"
	"github.com/ManuGH/hdmerge/internal/daemon"
	"github.com/ManuGH/hdmerge/internal/delivery"
	"github.com/ManuGH/hdmerge/internal/health"
	"github.com/ManuGH/hdmerge/internal/log"
	"github.com/ManuGH/hdmerge/internal/merge"
	"github.com/ManuGH/hdmerge/internal/metrics"
)

const serviceName = "hdmerge"

// pipeline is everything a request flows through, plus what health needs to see.
type pipeline struct {
	cache     cache.Cache
	cachePing func(ctx context.Context) error
	resolver  *catalog.Resolver
	adapter   *delivery.Adapter
}

// newCache builds the configured catalog cache backend. The ping function is
// nil for backends that cannot fail.
func newCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, func(context.Context) error, error) {
	switch cfg.Backend {
	case config.CacheBackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, log.WithComponent("cache"))
		if err != nil {
			return nil, nil, err
		}
		return rc, rc.HealthCheck, nil
	case config.CacheBackendNone:
		return cache.NewNoOpCache(), nil, nil
	default:
		return cache.NewMemoryCache(cfg.CleanupInterval), nil, nil
	}
}

func buildPipeline(ctx context.Context, cfg config.AppConfig) (*pipeline, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, fmt.Errorf("selection policy: %w", err)
	}

	c, ping, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache backend %s: %w", cfg.Cache.Backend, err)
	}

	ttl := cfg.Cache.TTL
	if cfg.Cache.Backend == config.CacheBackendNone {
		ttl = 0
	}
	resolver := catalog.NewResolver(
		catalog.NewYtDlpProvider(cfg.Extractor.Bin, cfg.Extractor.Timeout),
		c,
		catalog.ResolverConfig{
			Name:             "ytdlp",
			CacheTTL:         ttl,
			RatePerSecond:    cfg.Resolver.RatePerSecond,
			Burst:            cfg.Resolver.Burst,
			BreakerThreshold: cfg.Resolver.BreakerThreshold,
			BreakerReset:     cfg.Resolver.BreakerReset,
			ResolveTimeout:   cfg.Resolver.Timeout,
		},
	)

	engine := merge.NewEngine(merge.Config{
		Bin:         cfg.FFmpeg.Bin,
		KillTimeout: cfg.FFmpeg.KillTimeout,
		MaxSessions: int64(cfg.FFmpeg.MaxSessions),
		StderrLines: cfg.FFmpeg.StderrLines,
	})

	return &pipeline{
		cache:     c,
		cachePing: ping,
		resolver:  resolver,
		adapter:   delivery.NewAdapter(resolver, engine, policy,
			delivery.WithMergedLength(cfg.HTTP.MergedContentLength)),
	}, nil
}

func newHealthManager(cfg config.AppConfig, p *pipeline) *health.Manager {
	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewBinaryChecker("ffmpeg", cfg.FFmpeg.Bin))
	hm.RegisterChecker(health.NewBinaryChecker("yt-dlp", cfg.Extractor.Bin))
	hm.RegisterChecker(health.NewBreakerChecker("extractor_circuit", p.resolver.BreakerState))
	if p.cachePing != nil {
		hm.RegisterChecker(health.NewPingChecker("cache", 2*time.Second, p.cachePing))
	}
	return hm
}

func apiConfig(cfg config.AppConfig) api.Config {
	ac := api.Config{
		StreamRateLimit:    cfg.HTTP.StreamRateLimit,
		StreamRateWindow:   cfg.HTTP.StreamRateWindow,
		RateLimitWhitelist: cfg.HTTP.RateLimitWhitelist,
		CORSOrigins:        cfg.HTTP.CORSOrigins,
		SecurityHeaders:    cfg.HTTP.SecurityHeaders,
	}
	if cfg.Telemetry.Enabled {
		ac.TracingService = serviceName
	}
	return ac
}

// cacheStatsTask publishes the cache size for dashboards.
func cacheStatsTask(c cache.Cache) daemon.Task {
	return daemon.Every(30*time.Second, func(context.Context) {
		metrics.SetCatalogCacheEntries(c.Stats().CurrentSize)
	})
}
