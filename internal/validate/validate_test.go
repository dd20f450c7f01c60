// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_EmptyIsValid(t *testing.T) {
	var v Validator
	assert.NoError(t, v.Err())
}

func TestValidator_CollectsEverything(t *testing.T) {
	v := New()
	v.Listen("listen_addr", "8080")
	v.Required("ffmpeg.bin", "  ")
	v.Timeout("extractor.timeout", 0)
	Between(v, "ffmpeg.max_sessions", 0, 1, 256)

	err := v.Err()
	require.Error(t, err)

	var ps Problems
	require.True(t, errors.As(err, &ps))
	assert.Equal(t, []string{"listen_addr", "ffmpeg.bin", "extractor.timeout", "ffmpeg.max_sessions"}, ps.Fields())
	assert.Contains(t, err.Error(), "invalid configuration: listen_addr:")
	assert.Contains(t, err.Error(), "must be within [1, 256], got 0")
}

func TestValidator_ErrIsDetached(t *testing.T) {
	v := New()
	v.Add("a", nil, "first")
	err := v.Err()
	v.Add("b", nil, "second")

	var ps Problems
	require.ErrorAs(t, err, &ps)
	assert.Len(t, ps, 1)
}

func TestValidator_Listen(t *testing.T) {
	cases := map[string]bool{
		":8080":          true,
		"127.0.0.1:6379": true,
		"[::1]:8080":     true,
		"redis:6379":     true,
		"8080":           false,
		"":               false,
		":65536":         false,
		":http":          false,
	}
	for addr, ok := range cases {
		v := New()
		v.Listen("addr", addr)
		assert.Equal(t, ok, v.Err() == nil, "addr %q", addr)
	}
}

func TestValidator_Enum(t *testing.T) {
	v := New()
	v.Enum("cache.backend", "redis", "memory", "redis", "none")
	assert.NoError(t, v.Err())

	v.Enum("cache.backend", "disk", "memory", "redis", "none")
	require.Error(t, v.Err())
	assert.Contains(t, v.Err().Error(), `"disk" is not one of memory, redis, none`)
}

func TestValidator_LogLevel(t *testing.T) {
	for _, lvl := range []string{"trace", "debug", "info", "warn", "error"} {
		v := New()
		v.LogLevel("log_level", lvl)
		assert.NoError(t, v.Err(), lvl)
	}
	for _, lvl := range []string{"", "loud", "INFO "} {
		v := New()
		v.LogLevel("log_level", lvl)
		assert.Error(t, v.Err(), lvl)
	}
}

func TestValidator_Networks(t *testing.T) {
	v := New()
	v.Networks("whitelist", []string{"10.0.0.0/8", " 192.0.2.1 ", "", "::1", "fd00::/8"})
	assert.NoError(t, v.Err())

	v.Networks("whitelist", []string{"localhost", "10.0.0.0/33"})
	var ps Problems
	require.ErrorAs(t, v.Err(), &ps)
	assert.Len(t, ps, 2)
	assert.Equal(t, "localhost", ps[0].Value)
}

func TestGenericBounds(t *testing.T) {
	v := New()
	Between(v, "telemetry.sampling_rate", 0.5, 0, 1)
	AtLeast(v, "resolver.burst", 0, 0)
	AtLeast(v, "cache.ttl", time.Minute, 0)
	assert.NoError(t, v.Err())

	Between(v, "telemetry.sampling_rate", 1.5, 0, 1)
	AtLeast(v, "resolver.burst", -1, 0)
	AtLeast(v, "cache.ttl", -time.Second, 0)

	var ps Problems
	require.ErrorAs(t, v.Err(), &ps)
	assert.Equal(t, []string{"telemetry.sampling_rate", "resolver.burst", "cache.ttl"}, ps.Fields())
}
