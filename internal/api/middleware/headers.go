// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// streamCSP forbids everything. Responses are JSON or raw media, never documents.
const streamCSP = "default-src 'none'; frame-ancestors 'none'"

var hardeningHeaders = [][2]string{
	{"Content-Security-Policy", streamCSP},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
}

// Hardening sets static browser hardening headers, plus HSTS when the request
// arrived over TLS directly or through a terminating proxy.
func Hardening() func(http.Handler) http.Handler {
	chain := make(chi.Middlewares, 0, len(hardeningHeaders)+1)
	for _, h := range hardeningHeaders {
		chain = append(chain, chimw.SetHeader(h[0], h[1]))
	}
	chain = append(chain, hsts)
	return chain.Handler
}

func hsts(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			w.Header().Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// CrossOrigin lets browser players on the listed origins fetch streams and
// read the length and correlation headers. "*" admits any origin; the origin
// is echoed rather than answered with a literal "*".
func CrossOrigin(origins []string) func(http.Handler) http.Handler {
	anyOrigin := slices.Contains(origins, "*")
	admitted := func(origin string) bool {
		return origin != "" && (anyOrigin || slices.Contains(origins, origin))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if !admitted(origin) {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Expose-Headers", "Content-Length, Content-Type, "+HeaderRequestID)

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
			h.Set("Access-Control-Allow-Headers", HeaderRequestID)
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
