// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import "errors"

var (
	// ErrSourceUnavailable: the catalog or a track stream could not be obtained.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrNoPlayableFormat: the catalog holds no track that survives selection.
	ErrNoPlayableFormat = errors.New("no playable format")
	// ErrMergeProcess: the merge process failed to start or exited abnormally.
	ErrMergeProcess = errors.New("merge process failure")
	// ErrUpstreamStream: a source byte stream failed while being merged.
	ErrUpstreamStream = errors.New("upstream stream error")
)
