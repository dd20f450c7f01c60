// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/hdmerge/internal/config"
)

func TestHealthcheckCLI(t *testing.T) {
	ready := true
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/readyz" && !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, runHealthcheckCLI([]string{"-addr", ts.URL}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "ready")

	ready = false
	assert.Equal(t, 1, runHealthcheckCLI([]string{"-addr", ts.URL}, &stdout, &stderr))
	assert.Equal(t, 0, runHealthcheckCLI([]string{"-addr", ts.URL, "-mode", "live"}, &stdout, &stderr))

	assert.Equal(t, 2, runHealthcheckCLI([]string{"-bogus"}, &stdout, &stderr))
}

func TestNewCache_Backends(t *testing.T) {
	ctx := context.Background()

	c, ping, err := newCache(ctx, config.CacheConfig{Backend: config.CacheBackendMemory})
	require.NoError(t, err)
	assert.Nil(t, ping)
	require.NoError(t, c.Close())

	c, ping, err = newCache(ctx, config.CacheConfig{Backend: config.CacheBackendNone})
	require.NoError(t, err)
	assert.Nil(t, ping)
	require.NoError(t, c.Close())

	mr := miniredis.RunT(t)
	cfg := config.CacheConfig{Backend: config.CacheBackendRedis}
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Prefix = "hdmerge:"
	c, ping, err = newCache(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, ping)
	assert.NoError(t, ping(ctx))
	require.NoError(t, c.Close())
}

func TestBuildPipeline_RejectsBadPolicy(t *testing.T) {
	cfg := config.Defaults()
	cfg.Selection.Rules = nil

	_, err := buildPipeline(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuildPipeline_WiresHealthChecks(t *testing.T) {
	cfg := config.Defaults()
	cfg.FFmpeg.Bin = "hdmerge-test-missing-ffmpeg"

	p, err := buildPipeline(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = p.cache.Close() }()

	resp := newHealthManager(cfg, p).Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Contains(t, resp.Checks, "ffmpeg")
	assert.Contains(t, resp.Checks, "yt-dlp")
	assert.Contains(t, resp.Checks, "extractor_circuit")
	assert.NotContains(t, resp.Checks, "cache")
}

func TestAPIConfig_TracingFollowsTelemetry(t *testing.T) {
	cfg := config.Defaults()
	assert.Empty(t, apiConfig(cfg).TracingService)

	cfg.Telemetry.Enabled = true
	assert.Equal(t, serviceName, apiConfig(cfg).TracingService)
	assert.Equal(t, cfg.HTTP.StreamRateLimit, apiConfig(cfg).StreamRateLimit)
}
