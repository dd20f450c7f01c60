// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      false,
		ServiceName:  "test-service",
		ExporterType: "grpc",
	})
	require.NoError(t, err)
	assert.Nil(t, provider.tp, "expected noop provider")

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording(), "noop tracer spans must not record")
	span.End()

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "test-service",
		ExporterType: "invalid",
	})
	require.Error(t, err)
	assert.Equal(t, "unsupported exporter type: invalid (supported: grpc, http)", err.Error())
}

func TestSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", sampler(1.0).Description())
	assert.Equal(t, "AlwaysOffSampler", sampler(0).Description())
	assert.Contains(t, sampler(0.5).Description(), "TraceIDRatioBased")
}

func TestProvider_RecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider, err := newProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "hdmerge",
		SamplingRate: 1.0,
	}, exporter)
	require.NoError(t, err)

	_, span := Tracer("test").Start(context.Background(), "merge")
	span.SetAttributes(MergeAttributes("s-1", "mp4", 42)...)
	EndSpan(span, errors.New("ffmpeg exited 1"))

	// The in-memory exporter drops its spans on Shutdown, so flush and read first.
	require.NoError(t, provider.tp.ForceFlush(context.Background()))
	spans := exporter.GetSpans()
	require.NoError(t, provider.Shutdown(context.Background()))

	require.Len(t, spans, 1)
	assert.Equal(t, "merge", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Len(t, spans[0].Events, 1, "error recorded as span event")
}

func TestEndSpan_Success(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "ok")
	EndSpan(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestProvider_ShutdownNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &Provider{}
	assert.NoError(t, provider.Shutdown(ctx))
}
