// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestCatalogAttributes(t *testing.T) {
	m := attrMap(CatalogAttributes("dQw4w9WgXcQ", 12, true))
	assert.Equal(t, "dQw4w9WgXcQ", m[SourceIDKey].AsString())
	assert.Equal(t, int64(12), m[CatalogSizeKey].AsInt64())
	assert.True(t, m[CacheHitKey].AsBool())
}

func TestSelectionAttributes_OmitsEmpty(t *testing.T) {
	attrs := SelectionAttributes("single", "", "", "22")
	assert.Len(t, attrs, 2)
	m := attrMap(attrs)
	assert.Equal(t, "single", m[SelectionOutcomeKey].AsString())
	assert.Equal(t, "22", m[VideoTrackKey].AsString())

	assert.Len(t, SelectionAttributes("paired", "mp4", "140", "137"), 4)
}

func TestMergeAttributes(t *testing.T) {
	m := attrMap(MergeAttributes("abc", "webm", 1234))
	assert.Equal(t, "abc", m[MergeSessionKey].AsString())
	assert.Equal(t, "webm", m[ContainerKey].AsString())
	assert.Equal(t, int64(1234), m[MergePIDKey].AsInt64())
}
