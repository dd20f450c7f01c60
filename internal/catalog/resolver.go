// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/ManuGH/hdmerge/internal/cache"
	"github.com/ManuGH/hdmerge/internal/log"
	"github.com/ManuGH/hdmerge/internal/media"
	"github.com/ManuGH/hdmerge/internal/metrics"
	"github.com/ManuGH/hdmerge/internal/resilience"
	"github.com/ManuGH/hdmerge/internal/telemetry"
)

// ResolverConfig tunes the guards around a Provider.
type ResolverConfig struct {
	// Name labels metrics and the circuit breaker.
	Name string
	// CacheTTL is how long a resolved catalog is reused. Zero disables caching.
	CacheTTL time.Duration
	// RatePerSecond limits upstream resolves; zero means unlimited.
	RatePerSecond float64
	Burst         int
	// BreakerThreshold consecutive upstream failures open the circuit for BreakerReset.
	BreakerThreshold int
	BreakerReset     time.Duration
	// ResolveTimeout bounds one shared upstream resolve.
	ResolveTimeout time.Duration
}

// Resolver is a Provider that puts a cache, a rate limiter, a circuit breaker
// and request coalescing in front of another Provider.
type Resolver struct {
	provider Provider
	cfg      ResolverConfig
	cache    cache.Cache
	limiter  *rate.Limiter
	breaker  *resilience.CircuitBreaker
	group    singleflight.Group
}

// NewResolver wraps p. A nil cache disables caching.
func NewResolver(p Provider, c cache.Cache, cfg ResolverConfig) *Resolver {
	if cfg.Name == "" {
		cfg.Name = "catalog"
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = 45 * time.Second
	}
	if c == nil {
		c = cache.NewNoOpCache()
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Resolver{
		provider: p,
		cfg:      cfg,
		cache:    c,
		limiter:  rate.NewLimiter(limit, burst),
		breaker: resilience.NewCircuitBreaker(cfg.Name, cfg.BreakerThreshold, cfg.BreakerReset,
			resilience.WithFailureFilter(countsAsUpstreamFailure)),
	}
}

// countsAsUpstreamFailure keeps caller mistakes and cancellations out of the breaker.
func countsAsUpstreamFailure(err error) bool {
	return !errors.Is(err, ErrInvalidSourceID) &&
		!errors.Is(err, context.Canceled)
}

// Resolve returns the catalog for raw, from cache when possible. Concurrent
// calls for the same id share one upstream resolve.
func (r *Resolver) Resolve(ctx context.Context, raw string) ([]media.Track, error) {
	id, err := ParseSourceID(raw)
	if err != nil {
		return nil, err
	}
	key := "catalog:" + id.String()

	ctx, span := telemetry.Tracer("hdmerge/catalog").Start(ctx, "catalog.resolve")
	logger := log.WithComponentFromContext(ctx, "catalog").With().
		Str(log.FieldSourceID, id.String()).
		Logger()

	if tracks, ok := r.cached(ctx, key); ok {
		span.SetAttributes(telemetry.CatalogAttributes(id.String(), len(tracks), true)...)
		telemetry.EndSpan(span, nil)
		return tracks, nil
	}

	ch := r.group.DoChan(key, func() (any, error) {
		// Shared by every waiter, so it must not die with the first caller.
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.ResolveTimeout)
		defer cancel()
		return r.resolveUpstream(sharedCtx, id, key)
	})

	select {
	case <-ctx.Done():
		telemetry.EndSpan(span, ctx.Err())
		return nil, fmt.Errorf("%w: %w", media.ErrSourceUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			logger.Warn().Err(res.Err).Msg("catalog resolve failed")
			telemetry.EndSpan(span, res.Err)
			return nil, res.Err
		}
		tracks := res.Val.([]media.Track)
		logger.Debug().
			Int(log.FieldCatalogSize, len(tracks)).
			Bool("shared", res.Shared).
			Msg("catalog resolved")
		span.SetAttributes(telemetry.CatalogAttributes(id.String(), len(tracks), false)...)
		telemetry.EndSpan(span, nil)
		return tracks, nil
	}
}

func (r *Resolver) resolveUpstream(ctx context.Context, id SourceID, key string) ([]media.Track, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		metrics.IncRateLimited("resolve")
		return nil, fmt.Errorf("%w: resolve rate limit: %w", media.ErrSourceUnavailable, err)
	}

	start := time.Now()
	tracks, err := resilience.Do(r.breaker, func() ([]media.Track, error) {
		return r.provider.Resolve(ctx, id.String())
	})
	metrics.ObserveCatalogResolve(r.cfg.Name, err == nil, time.Since(start))

	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, fmt.Errorf("%w: %w", media.ErrSourceUnavailable, err)
	}
	if err != nil {
		return nil, err
	}

	if len(tracks) > 0 && r.cfg.CacheTTL > 0 {
		if data, err := json.Marshal(tracks); err == nil {
			r.cache.Set(ctx, key, data, r.cfg.CacheTTL)
		}
	}
	return tracks, nil
}

func (r *Resolver) cached(ctx context.Context, key string) ([]media.Track, bool) {
	data, ok := r.cache.Get(ctx, key)
	if !ok {
		metrics.IncCatalogCache(false)
		return nil, false
	}
	var tracks []media.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		r.cache.Delete(ctx, key)
		metrics.IncCatalogCache(false)
		return nil, false
	}
	metrics.IncCatalogCache(true)
	return tracks, true
}

// OpenTrack implements Provider by delegating to the wrapped provider.
func (r *Resolver) OpenTrack(ctx context.Context, track media.Track) (io.ReadCloser, error) {
	return r.provider.OpenTrack(ctx, track)
}

// BreakerState reports the upstream circuit state, for readiness reporting.
func (r *Resolver) BreakerState() resilience.State {
	return r.breaker.State()
}
