// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Middleware logs one line per HTTP request once the handler has returned.
// Streaming responses are logged with their full duration and byte count.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			l := WithContext(ctx, WithComponent("http"))
			ctx = l.WithContext(ctx)

			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			aborted := true
			defer func() {
				logRequest(l, r, rw, start, aborted)
			}()
			next.ServeHTTP(rw, r.WithContext(ctx))
			aborted = false
		})
	}
}

func logRequest(l zerolog.Logger, r *http.Request, rw *statusRecorder, start time.Time, aborted bool) {
	route := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			route = pattern
		}
	}

	var ev *zerolog.Event
	switch {
	case rw.status >= 500 || aborted:
		ev = l.Error()
	case rw.status >= 400:
		ev = l.Warn()
	default:
		ev = l.Info()
	}
	ev.Str(FieldEvent, "request.handled").
		Str("method", r.Method).
		Str("route", route).
		Int("status", rw.status).
		Int64(FieldBytes, rw.bytes).
		Dur(FieldDuration, time.Since(start)).
		Str("remote_addr", r.RemoteAddr).
		Bool("aborted", aborted).
		Msg("request handled")
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += int64(n)
	return n, err
}

// Flush forwards to the wrapped writer so streamed bodies reach the client promptly.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
