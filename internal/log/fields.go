// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldSessionID = "session_id"
	FieldSourceID  = "source_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldStderr    = "stderr"

	// Media / selection fields
	FieldContainer   = "container"
	FieldAudioTrack  = "audio_track"
	FieldVideoTrack  = "video_track"
	FieldSelection   = "selection"
	FieldCatalogSize = "catalog_size"

	// Transfer fields
	FieldBytes    = "bytes"
	FieldDuration = "duration"
	FieldPipe     = "pipe"
)
