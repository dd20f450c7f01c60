// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestOverrideEnv_Kinds(t *testing.T) {
	e := newEnvOverrides(zerolog.Nop())
	e.lookup = fakeEnv(map[string]string{
		"HDMERGE_S": " value ",
		"HDMERGE_I": "42",
		"HDMERGE_F": "0.5",
		"HDMERGE_D": "1m30s",
		"HDMERGE_B": "off",
		"HDMERGE_L": "a, ,b,",
	})

	var (
		s = "default"
		i = 1
		f = 1.0
		d = time.Second
		b = true
		l = []string{"x"}
	)
	overrideEnv(e, "S", &s, asString)
	overrideEnv(e, "I", &i, asInt)
	overrideEnv(e, "F", &f, asFloat)
	overrideEnv(e, "D", &d, asDuration)
	overrideEnv(e, "B", &b, asBool)
	overrideEnv(e, "L", &l, asList)

	require.NoError(t, e.Err())
	assert.Equal(t, "value", s)
	assert.Equal(t, 42, i)
	assert.InDelta(t, 0.5, f, 1e-9)
	assert.Equal(t, 90*time.Second, d)
	assert.False(t, b)
	assert.Equal(t, []string{"a", "b"}, l)
	assert.Len(t, e.applied, 6)
}

func TestOverrideEnv_UnsetAndBlankKeepCurrent(t *testing.T) {
	e := newEnvOverrides(zerolog.Nop())
	e.lookup = fakeEnv(map[string]string{"HDMERGE_BLANK": "   "})

	n := 7
	overrideEnv(e, "BLANK", &n, asInt)
	overrideEnv(e, "UNSET", &n, asInt)

	assert.Equal(t, 7, n)
	assert.NoError(t, e.Err())
	assert.Empty(t, e.applied)
}

func TestOverrideEnv_CollectsParseFailures(t *testing.T) {
	e := newEnvOverrides(zerolog.Nop())
	e.lookup = fakeEnv(map[string]string{
		"HDMERGE_MAX_SESSIONS":     "four",
		"HDMERGE_SECURITY_HEADERS": "maybe",
	})

	n, on := 4, true
	overrideEnv(e, "MAX_SESSIONS", &n, asInt)
	overrideEnv(e, "SECURITY_HEADERS", &on, asBool)

	err := e.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidEnv))
	assert.Contains(t, err.Error(), `HDMERGE_MAX_SESSIONS="four"`)
	assert.Contains(t, err.Error(), `HDMERGE_SECURITY_HEADERS="maybe"`)
	assert.Equal(t, 4, n)
	assert.True(t, on)
}

func TestOverrideEnv_RedactsSecrets(t *testing.T) {
	// Overrides log at debug; the log package pins the global level to info.
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	e := newEnvOverrides(zerolog.New(&buf).Level(zerolog.DebugLevel))
	e.lookup = fakeEnv(map[string]string{
		"HDMERGE_REDIS_PASSWORD": "hunter2",
		"HDMERGE_REDIS_ADDR":     "redis:6379",
	})

	var pw, addr string
	overrideEnv(e, "REDIS_PASSWORD", &pw, asString)
	overrideEnv(e, "REDIS_ADDR", &addr, asString)

	assert.Equal(t, "hunter2", pw)
	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), `"redacted":true`)
	assert.Contains(t, buf.String(), "redis:6379")
}

func TestAsBool(t *testing.T) {
	for _, s := range []string{"1", "true", "YES", "On"} {
		v, err := asBool(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"0", "False", "no", "OFF"} {
		v, err := asBool(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}
	_, err := asBool("2")
	assert.Error(t, err)
}
