// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/hdmerge/internal/catalog"
	"github.com/ManuGH/hdmerge/internal/log"
	"github.com/ManuGH/hdmerge/internal/media"
	"github.com/ManuGH/hdmerge/internal/merge"
	"github.com/ManuGH/hdmerge/internal/resilience"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeInvalidSourceID   = "invalid_source_id"
	CodeNoPlayableFormat  = "no_playable_format"
	CodeSourceUnavailable = "source_unavailable"
	CodeCircuitOpen       = "circuit_open"
	CodeCapacity          = "capacity"
	CodeMergeFailed       = "merge_failed"
	CodeUpstreamStream    = "upstream_stream"
	CodeTimeout           = "timeout"
	CodeInternal          = "internal"
)

// capacityRetryAfter is advertised when every merge slot is taken.
const capacityRetryAfter = "5"

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorClass struct {
	status  int
	code    string
	message string
}

// classify maps a pipeline error onto its HTTP status. Invalid ids are also
// source-unavailable errors, so they are matched first.
func classify(err error) errorClass {
	switch {
	case errors.Is(err, catalog.ErrInvalidSourceID):
		return errorClass{http.StatusBadRequest, CodeInvalidSourceID, "invalid source id"}
	case errors.Is(err, media.ErrNoPlayableFormat):
		return errorClass{http.StatusNotFound, CodeNoPlayableFormat, "no playable format"}
	case errors.Is(err, merge.ErrCapacity):
		return errorClass{http.StatusServiceUnavailable, CodeCapacity, "all merge sessions busy"}
	case errors.Is(err, resilience.ErrCircuitOpen):
		return errorClass{http.StatusBadGateway, CodeCircuitOpen, "source temporarily unavailable"}
	case errors.Is(err, media.ErrSourceUnavailable):
		return errorClass{http.StatusBadGateway, CodeSourceUnavailable, "source unavailable"}
	case errors.Is(err, media.ErrMergeProcess):
		return errorClass{http.StatusBadGateway, CodeMergeFailed, "merge failed"}
	case errors.Is(err, media.ErrUpstreamStream):
		return errorClass{http.StatusBadGateway, CodeUpstreamStream, "upstream stream failed"}
	case errors.Is(err, context.DeadlineExceeded):
		return errorClass{http.StatusGatewayTimeout, CodeTimeout, "timed out"}
	default:
		return errorClass{http.StatusInternalServerError, CodeInternal, "internal server error"}
	}
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs err and writes its classified JSON error response. Nothing
// is written once the client has gone away.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		logger.Debug().Err(err).Str(log.FieldEvent, "request.canceled").Msg("client went away")
		return
	}

	class := classify(err)
	ev := logger.Warn()
	if class.status >= http.StatusInternalServerError {
		ev = logger.Error()
	}
	ev.Err(err).
		Str(log.FieldEvent, "request.failed").
		Int("status", class.status).
		Str("code", class.code).
		Msg("request failed")

	if class.code == CodeCapacity {
		w.Header().Set("Retry-After", capacityRetryAfter)
	}
	writeJSON(w, class.status, ErrorResponse{Error: class.message, Code: class.code})
}
