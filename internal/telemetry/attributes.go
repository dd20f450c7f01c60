// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by all spans.
const (
	SourceIDKey    = "source.id"
	CatalogSizeKey = "catalog.size"
	CacheHitKey    = "catalog.cache_hit"

	SelectionOutcomeKey = "selection.outcome"
	ContainerKey        = "media.container"
	AudioTrackKey       = "media.audio_track"
	VideoTrackKey       = "media.video_track"

	MergeSessionKey = "merge.session_id"
	MergePIDKey     = "merge.pid"
)

// CatalogAttributes describes one catalog resolve.
func CatalogAttributes(sourceID string, size int, cacheHit bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SourceIDKey, sourceID),
		attribute.Int(CatalogSizeKey, size),
		attribute.Bool(CacheHitKey, cacheHit),
	}
}

// SelectionAttributes describes a selection decision. Empty track ids are omitted.
func SelectionAttributes(outcome, container, audioID, videoID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	attrs = append(attrs, attribute.String(SelectionOutcomeKey, outcome))
	if container != "" {
		attrs = append(attrs, attribute.String(ContainerKey, container))
	}
	if audioID != "" {
		attrs = append(attrs, attribute.String(AudioTrackKey, audioID))
	}
	if videoID != "" {
		attrs = append(attrs, attribute.String(VideoTrackKey, videoID))
	}
	return attrs
}

// MergeAttributes describes a running merge session.
func MergeAttributes(sessionID, container string, pid int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(MergeSessionKey, sessionID),
		attribute.String(ContainerKey, container),
		attribute.Int(MergePIDKey, pid),
	}
}
