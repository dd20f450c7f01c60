// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/ManuGH/hdmerge/internal/log"
)

// Recoverer turns handler panics into a 500 response. http.ErrAbortHandler is
// re-raised so the server drops the connection of a truncated stream.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			logger := log.WithComponentFromContext(r.Context(), "http")
			logger.Error().
				Str(log.FieldEvent, "request.panic").
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			if r.Header.Get("Connection") != "Upgrade" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal server error","code":"internal"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
