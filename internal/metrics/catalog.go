// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogResolveTotal counts upstream catalog resolves by provider and result.
	CatalogResolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hdmerge_catalog_resolve_total",
		Help: "Total number of upstream catalog resolves, by provider and result.",
	}, []string{"provider", "result"})

	// CatalogResolveDuration tracks upstream resolve latency.
	CatalogResolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hdmerge_catalog_resolve_duration_seconds",
		Help:    "Duration of upstream catalog resolves.",
		Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 20},
	}, []string{"provider"})

	// CatalogCacheTotal counts catalog cache lookups.
	CatalogCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hdmerge_catalog_cache_total",
		Help: "Catalog cache lookups, by result (hit/miss).",
	}, []string{"result"})

	// TrackOpenTotal counts track byte-stream opens by media kind and result.
	TrackOpenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hdmerge_track_open_total",
		Help: "Track stream opens against the source provider, by kind and result.",
	}, []string{"kind", "result"})

	// CatalogCacheEntries is the number of catalogs held by the cache backend.
	CatalogCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hdmerge_catalog_cache_entries",
		Help: "Catalogs currently held by the cache backend.",
	})
)

// ObserveCatalogResolve records one upstream resolve.
func ObserveCatalogResolve(provider string, ok bool, d time.Duration) {
	CatalogResolveTotal.WithLabelValues(provider, resultLabel(ok)).Inc()
	CatalogResolveDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// IncCatalogCache records a cache hit or miss.
func IncCatalogCache(hit bool) {
	if hit {
		CatalogCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	CatalogCacheTotal.WithLabelValues("miss").Inc()
}

// IncTrackOpen records a track open attempt.
func IncTrackOpen(kind string, ok bool) {
	TrackOpenTotal.WithLabelValues(kind, resultLabel(ok)).Inc()
}

// SetCatalogCacheEntries publishes the cache size.
func SetCatalogCacheEntries(n int) {
	CatalogCacheEntries.Set(float64(n))
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
