// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/hdmerge/internal/catalog"
	"github.com/ManuGH/hdmerge/internal/delivery"
	"github.com/ManuGH/hdmerge/internal/log"
	"github.com/ManuGH/hdmerge/internal/media"
)

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.serveStream(w, r, chi.URLParam(r, "sourceID"))
}

func (s *Server) handleStreamByURL(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, r, fmt.Errorf("%w: missing url parameter", catalog.ErrInvalidSourceID))
		return
	}
	s.serveStream(w, r, raw)
}

// serveStream resolves and selects before anything is written, so those
// failures become JSON errors. Once media bytes may have been sent a failure
// can only abort the connection, which the client sees as a truncated body.
func (s *Server) serveStream(w http.ResponseWriter, r *http.Request, sourceID string) {
	ctx := log.ContextWithSourceID(r.Context(), sourceID)
	r = r.WithContext(ctx)

	plan, err := s.deliverer.Prepare(ctx, sourceID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.Method == http.MethodHead {
		for k, v := range s.deliverer.Headers(plan.Selection) {
			w.Header()[k] = v
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	tw := &headerTracker{ResponseWriter: w}
	if _, err := s.deliverer.Deliver(ctx, tw, plan); err != nil {
		if !tw.wroteHeader {
			writeError(w, r, err)
			return
		}
		panic(http.ErrAbortHandler)
	}
}

// FormatsResponse is the diagnostics view of a source: its catalog and the
// decision the selector makes for it. Track locators are never exposed.
type FormatsResponse struct {
	SourceID string        `json:"source_id"`
	Decision Decision      `json:"decision"`
	Formats  []media.Track `json:"formats"`
}

// Decision describes a selection and the headers a stream request would get.
type Decision struct {
	Outcome       string       `json:"outcome"`
	Container     string       `json:"container,omitempty"`
	Audio         *media.Track `json:"audio,omitempty"`
	Video         *media.Track `json:"video,omitempty"`
	Track         *media.Track `json:"track,omitempty"`
	ContentType   string       `json:"content_type,omitempty"`
	ContentLength string       `json:"content_length,omitempty"`
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	s.serveFormats(w, r, chi.URLParam(r, "sourceID"))
}

func (s *Server) handleFormatsByURL(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, r, fmt.Errorf("%w: missing url parameter", catalog.ErrInvalidSourceID))
		return
	}
	s.serveFormats(w, r, raw)
}

func (s *Server) serveFormats(w http.ResponseWriter, r *http.Request, sourceID string) {
	ctx := log.ContextWithSourceID(r.Context(), sourceID)
	r = r.WithContext(ctx)

	plan, err := s.deliverer.Inspect(ctx, sourceID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, formatsResponse(plan, s.deliverer.Headers(plan.Selection)))
}

func formatsResponse(plan *delivery.Plan, h http.Header) FormatsResponse {
	resp := FormatsResponse{
		SourceID: plan.SourceID,
		Formats:  make([]media.Track, 0, len(plan.Catalog)),
	}
	for _, t := range plan.Catalog {
		resp.Formats = append(resp.Formats, redact(t))
	}

	d := Decision{Outcome: media.Outcome(plan.Selection)}
	switch sel := plan.Selection.(type) {
	case media.Paired:
		a, v := redact(sel.Audio), redact(sel.Video)
		d.Container = string(sel.Container)
		d.Audio, d.Video = &a, &v
	case media.Single:
		t := redact(sel.Track)
		d.Container = string(sel.Track.Container)
		d.Track = &t
	}
	d.ContentType = h.Get("Content-Type")
	d.ContentLength = h.Get("Content-Length")
	resp.Decision = d
	return resp
}

// redact strips the provider locator, which may carry signed URLs or cookies.
func redact(t media.Track) media.Track {
	t.URL = ""
	t.Headers = nil
	return t
}

// headerTracker records whether the response has been committed.
type headerTracker struct {
	http.ResponseWriter
	wroteHeader bool
}

func (t *headerTracker) WriteHeader(code int) {
	t.wroteHeader = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *headerTracker) Write(b []byte) (int, error) {
	t.wroteHeader = true
	return t.ResponseWriter.Write(b)
}

func (t *headerTracker) Flush() {
	t.wroteHeader = true
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (t *headerTracker) Unwrap() http.ResponseWriter { return t.ResponseWriter }
