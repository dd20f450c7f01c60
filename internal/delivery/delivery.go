// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package delivery turns a source id into response headers and a byte stream:
// it resolves the catalog, selects tracks, and either merges a pair or passes
// a single track through.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/hdmerge/internal/catalog"
	"github.com/ManuGH/hdmerge/internal/log"
	"github.com/ManuGH/hdmerge/internal/media"
	"github.com/ManuGH/hdmerge/internal/merge"
	"github.com/ManuGH/hdmerge/internal/metrics"
	"github.com/ManuGH/hdmerge/internal/telemetry"
)

const copyBufferSize = 64 << 10

// Merger starts merge sessions. *merge.Engine implements it.
type Merger interface {
	Merge(ctx context.Context, audio, video io.ReadCloser, container media.Container) (*merge.Session, error)
}

// Plan is the resolved catalog and the selection made from it.
type Plan struct {
	SourceID  string
	Catalog   []media.Track
	Selection media.Selection
}

// Adapter serves selections to HTTP clients.
type Adapter struct {
	provider     catalog.Provider
	merger       Merger
	policy       media.Policy
	mergedLength bool
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithMergedLength controls whether merged non-fragmented output announces
// the summed track sizes as Content-Length. The remuxed container rarely
// matches that sum exactly; disabling it sends merges chunked.
func WithMergedLength(enabled bool) AdapterOption {
	return func(a *Adapter) { a.mergedLength = enabled }
}

// NewAdapter creates an Adapter. policy must already be validated.
func NewAdapter(provider catalog.Provider, merger Merger, policy media.Policy, opts ...AdapterOption) *Adapter {
	a := &Adapter{provider: provider, merger: merger, policy: policy, mergedLength: true}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Inspect resolves sourceID and runs selection. A NotFound selection is not an error here.
func (a *Adapter) Inspect(ctx context.Context, sourceID string) (*Plan, error) {
	tracks, err := a.provider.Resolve(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	sel := media.Select(tracks, a.policy)
	metrics.IncSelection(media.Outcome(sel), selectionContainer(sel))
	return &Plan{SourceID: sourceID, Catalog: tracks, Selection: sel}, nil
}

// Prepare resolves and selects. It fails with media.ErrNoPlayableFormat when
// nothing in the catalog can be delivered, before any byte is written.
func (a *Adapter) Prepare(ctx context.Context, sourceID string) (*Plan, error) {
	plan, err := a.Inspect(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if _, ok := plan.Selection.(media.NotFound); ok {
		return nil, fmt.Errorf("%w: %d tracks offered for %s", media.ErrNoPlayableFormat, len(plan.Catalog), sourceID)
	}

	logger := log.WithComponentFromContext(ctx, "delivery")
	logger.Info().
		Str(log.FieldSelection, media.Outcome(plan.Selection)).
		Str(log.FieldAudioTrack, selectionAudioID(plan.Selection)).
		Str(log.FieldVideoTrack, selectionVideoID(plan.Selection)).
		Int(log.FieldCatalogSize, len(plan.Catalog)).
		Msg("format selected")
	return plan, nil
}

// Headers returns the response headers for a selection.
//
// Merged output takes the container's type. Content-Length is only announced
// for a non-fragmented container when both track sizes are exact; a single
// track announces its own size when exact. Estimated sizes never become
// Content-Length, since net/http aborts a body that overruns it.
func Headers(sel media.Selection) http.Header { return headers(sel, true) }

// Headers is the package Headers with the adapter's merged length setting.
func (a *Adapter) Headers(sel media.Selection) http.Header { return headers(sel, a.mergedLength) }

func headers(sel media.Selection, mergedLength bool) http.Header {
	h := make(http.Header)
	switch s := sel.(type) {
	case media.Paired:
		h.Set("Content-Type", s.Container.MIMEType())
		if mergedLength && !s.Container.Fragmented() && knownSize(s.Audio) && knownSize(s.Video) {
			h.Set("Content-Length", strconv.FormatInt(s.Audio.ApproxBytes+s.Video.ApproxBytes, 10))
		}
	case media.Single:
		ct := s.Track.BaseMIMEType()
		if ct == "" {
			ct = s.Track.Container.MIMEType()
		}
		h.Set("Content-Type", ct)
		if knownSize(s.Track) {
			h.Set("Content-Length", strconv.FormatInt(s.Track.ApproxBytes, 10))
		}
	}
	return h
}

func knownSize(t media.Track) bool { return t.SizeExact && t.ApproxBytes > 0 }

// Deliver streams the plan's selection to w and returns the bytes written.
//
// Headers are only written once the stream is open, so an error with zero
// bytes and no header written can still become an error response. Later
// errors (ErrMergeProcess, ErrUpstreamStream or a client write failure) mean
// the response is truncated.
func (a *Adapter) Deliver(ctx context.Context, w http.ResponseWriter, plan *Plan) (n int64, err error) {
	ctx, span := telemetry.Tracer("hdmerge/delivery").Start(ctx, "delivery.deliver")
	span.SetAttributes(telemetry.SelectionAttributes(
		media.Outcome(plan.Selection),
		selectionContainer(plan.Selection),
		selectionAudioID(plan.Selection),
		selectionVideoID(plan.Selection),
	)...)
	start := time.Now()

	var mode string
	switch s := plan.Selection.(type) {
	case media.Paired:
		mode = "merge"
		n, err = a.deliverPaired(ctx, w, s)
	case media.Single:
		mode = "passthrough"
		n, err = a.deliverSingle(ctx, w, s)
	default:
		mode = "none"
		err = media.ErrNoPlayableFormat
	}

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.IncDelivery(mode, result)

	logger := log.WithComponentFromContext(ctx, "delivery")
	ev := logger.Info()
	if err != nil && !errors.Is(err, context.Canceled) {
		ev = logger.Warn().Err(err)
	}
	ev.Str("mode", mode).
		Int64(log.FieldBytes, n).
		Dur(log.FieldDuration, time.Since(start)).
		Msg("delivery finished")

	telemetry.EndSpan(span, err)
	return n, err
}

func (a *Adapter) deliverPaired(ctx context.Context, w http.ResponseWriter, p media.Paired) (int64, error) {
	audio, err := a.provider.OpenTrack(ctx, p.Audio)
	if err != nil {
		return 0, err
	}
	video, err := a.provider.OpenTrack(ctx, p.Video)
	if err != nil {
		_ = audio.Close()
		return 0, err
	}

	sess, err := a.merger.Merge(ctx, audio, video, p.Container)
	if err != nil {
		return 0, err
	}
	defer sess.Close()

	writeHeaders(w, a.Headers(p))
	n, readErr, writeErr := copyStream(w, sess)
	if writeErr != nil {
		return n, writeErr
	}
	// Session errors already carry their classification.
	return n, readErr
}

func (a *Adapter) deliverSingle(ctx context.Context, w http.ResponseWriter, s media.Single) (int64, error) {
	body, err := a.provider.OpenTrack(ctx, s.Track)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	writeHeaders(w, a.Headers(s))
	n, readErr, writeErr := copyStream(w, body)
	if writeErr != nil {
		return n, writeErr
	}
	if readErr != nil {
		return n, fmt.Errorf("%w: track %s: %w", media.ErrUpstreamStream, s.Track.ID, readErr)
	}
	return n, nil
}

func writeHeaders(w http.ResponseWriter, h http.Header) {
	for k, v := range h {
		w.Header()[k] = v
	}
	w.WriteHeader(http.StatusOK)
}

// copyStream copies src to w, flushing after every chunk so playback starts
// early. Read and write failures are reported separately.
func copyStream(w http.ResponseWriter, src io.Reader) (n int64, readErr, writeErr error) {
	rc := http.NewResponseController(w)
	buf := make([]byte, copyBufferSize)
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := w.Write(buf[:nr])
			n += int64(nw)
			if werr != nil {
				return n, nil, werr
			}
			if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
				return n, nil, ferr
			}
		}
		if errors.Is(rerr, io.EOF) {
			return n, nil, nil
		}
		if rerr != nil {
			return n, rerr, nil
		}
	}
}

func selectionContainer(sel media.Selection) string {
	switch s := sel.(type) {
	case media.Paired:
		return string(s.Container)
	case media.Single:
		return string(s.Track.Container)
	default:
		return ""
	}
}

func selectionAudioID(sel media.Selection) string {
	if p, ok := sel.(media.Paired); ok {
		return p.Audio.ID
	}
	return ""
}

func selectionVideoID(sel media.Selection) string {
	switch s := sel.(type) {
	case media.Paired:
		return s.Video.ID
	case media.Single:
		return s.Track.ID
	default:
		return ""
	}
}
