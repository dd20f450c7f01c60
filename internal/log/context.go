// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// correlation is stored as one immutable value per context; each setter
// derives a new context holding a modified copy.
type correlation struct {
	requestID string
	sessionID string
	sourceID  string
}

type correlationKey struct{}

func correlationFrom(ctx context.Context) correlation {
	if ctx == nil {
		return correlation{}
	}
	c, _ := ctx.Value(correlationKey{}).(correlation)
	return c
}

func withCorrelation(ctx context.Context, edit func(*correlation)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := correlationFrom(ctx)
	edit(&c)
	return context.WithValue(ctx, correlationKey{}, c)
}

// ContextWithRequestID tags ctx with the HTTP request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.requestID = id })
}

// ContextWithSessionID tags ctx with a merge session id.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.sessionID = id })
}

// ContextWithSourceID tags ctx with the source being delivered.
func ContextWithSourceID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.sourceID = id })
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	return correlationFrom(ctx).requestID
}

// WithContext adds whatever correlation fields ctx carries to logger,
// including the active trace and span ids.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	c := correlationFrom(ctx)
	sc := trace.SpanContextFromContext(ctx)
	if c == (correlation{}) && !sc.IsValid() {
		return logger
	}

	zc := logger.With()
	for _, f := range [...]struct{ key, val string }{
		{FieldRequestID, c.requestID},
		{FieldSessionID, c.sessionID},
		{FieldSourceID, c.sourceID},
	} {
		if f.val != "" {
			zc = zc.Str(f.key, f.val)
		}
	}
	if sc.IsValid() {
		zc = zc.Str(FieldTraceID, sc.TraceID().String()).Str(FieldSpanID, sc.SpanID().String())
	}
	return zc.Logger()
}

// WithComponentFromContext is WithComponent enriched by WithContext.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
