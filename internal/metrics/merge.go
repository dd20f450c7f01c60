// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	// SelectionTotal counts selector decisions by outcome and container.
	SelectionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hdmerge_selection_total",
		Help: "Format selection outcomes (paired/single/not_found), by container.",
	}, []string{"outcome", "container"})

	// MergeStartTotal counts merge process starts.
	MergeStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hdmerge_merge_start_total",
		Help: "Total number of ffmpeg merge process starts, by result.",
	}, []string{"result"})

	// MergeExitTotal counts merge session endings.
	MergeExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hdmerge_merge_exit_total",
		Help: "Total number of merge session endings, by reason.",
	}, []string{"reason"})

	// MergeActiveSessions tracks running merge sessions.
	MergeActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hdmerge_merge_active_sessions",
		Help: "Current number of running merge sessions.",
	})

	// MergeBytesTotal tracks bytes moved through each session pipe.
	MergeBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hdmerge_merge_bytes_total",
		Help: "Bytes moved through merge pipes, by pipe (audio_in/video_in/out).",
	}, []string{"pipe"})

	// MergeSessionDuration tracks merge session lifetimes.
	MergeSessionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hdmerge_merge_session_duration_seconds",
		Help:    "Lifetime of merge sessions, by end reason.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"reason"})

	// DeliveryTotal counts delivered responses by mode and result.
	DeliveryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hdmerge_delivery_total",
		Help: "Delivered media responses, by mode (merge/passthrough) and result.",
	}, []string{"mode", "result"})
)

// IncSelection records a selection outcome.
func IncSelection(outcome, container string) {
	SelectionTotal.WithLabelValues(outcome, container).Inc()
}

// IncMergeStart records a process start attempt.
func IncMergeStart(ok bool) {
	MergeStartTotal.WithLabelValues(resultLabel(ok)).Inc()
}

// RecordMergeExit records the end of a session and its lifetime.
func RecordMergeExit(reason string, lifetime time.Duration) {
	MergeExitTotal.WithLabelValues(reason).Inc()
	MergeSessionDuration.WithLabelValues(reason).Observe(lifetime.Seconds())
}

// AddMergeBytes adds n bytes to the pipe counter.
func AddMergeBytes(pipe string, n int64) {
	if n > 0 {
		MergeBytesTotal.WithLabelValues(pipe).Add(float64(n))
	}
}

// IncDelivery records a delivery result.
func IncDelivery(mode, result string) {
	DeliveryTotal.WithLabelValues(mode, result).Inc()
}

// GetMergeActiveSessions returns the current gauge value (for testing).
func GetMergeActiveSessions() float64 {
	var m dto.Metric
	if err := MergeActiveSessions.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

// CounterValue reads a counter child's value (for testing).
func CounterValue(vec *prometheus.CounterVec, labels ...string) float64 {
	c, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
