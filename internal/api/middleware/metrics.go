// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hdmerge_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds, including the full streamed body.",
		Buckets: prometheus.ExponentialBuckets(0.005, 4, 12),
	}, []string{"method", "path", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hdmerge_http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hdmerge_http_response_size_bytes",
		Help:    "HTTP response sizes in bytes",
		Buckets: prometheus.ExponentialBuckets(100, 10, 9),
	}, []string{"method", "path", "status"})
)

// Metrics records Prometheus metrics for HTTP requests. Aborted streams are
// recorded too; their status is the one sent before the abort.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpRequestsInFlight.Inc()

			mw := &metricsWriter{ResponseWriter: w, statusCode: http.StatusOK}
			defer func() {
				httpRequestsInFlight.Dec()

				// Route pattern keeps label cardinality bounded.
				path := r.URL.Path
				if rc := chi.RouteContext(r.Context()); rc != nil {
					if pattern := rc.RoutePattern(); pattern != "" {
						path = pattern
					}
				}
				status := strconv.Itoa(mw.statusCode)
				httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
				if mw.bytesWritten > 0 {
					httpResponseSize.WithLabelValues(r.Method, path, status).Observe(float64(mw.bytesWritten))
				}
			}()

			next.ServeHTTP(mw, r)
		})
	}
}

type metricsWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	written      bool
}

func (mw *metricsWriter) WriteHeader(statusCode int) {
	if !mw.written {
		mw.statusCode = statusCode
		mw.written = true
	}
	mw.ResponseWriter.WriteHeader(statusCode)
}

func (mw *metricsWriter) Write(b []byte) (int, error) {
	if !mw.written {
		mw.WriteHeader(http.StatusOK)
	}
	n, err := mw.ResponseWriter.Write(b)
	mw.bytesWritten += int64(n)
	return n, err
}

func (mw *metricsWriter) Flush() {
	if f, ok := mw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (mw *metricsWriter) Unwrap() http.ResponseWriter { return mw.ResponseWriter }
