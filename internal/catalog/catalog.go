// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package catalog resolves a source identifier into the list of encoded
// tracks a provider offers for it, and opens those tracks as byte streams.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/ManuGH/hdmerge/internal/media"
)

// ErrInvalidSourceID is returned for identifiers that are neither a video id nor an http(s) URL.
// It is always wrapped together with media.ErrSourceUnavailable.
var ErrInvalidSourceID = errors.New("invalid source id")

// Provider fetches catalogs and track bytes from an upstream source.
type Provider interface {
	// Resolve returns the tracks offered for sourceID, in provider order.
	// Failures wrap media.ErrSourceUnavailable.
	Resolve(ctx context.Context, sourceID string) ([]media.Track, error)
	// OpenTrack opens the byte stream of a track returned by Resolve.
	OpenTrack(ctx context.Context, track media.Track) (io.ReadCloser, error)
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// SourceID is a validated source identifier.
type SourceID struct {
	// VideoID is set for bare video ids.
	VideoID string
	// URL is set for page URLs.
	URL string
}

// String returns the canonical form, used as cache key.
func (s SourceID) String() string {
	if s.VideoID != "" {
		return s.VideoID
	}
	return s.URL
}

// Target is what gets handed to the extractor.
func (s SourceID) Target() string {
	if s.VideoID != "" {
		return "https://www.youtube.com/watch?v=" + s.VideoID
	}
	return s.URL
}

// ParseSourceID accepts an 11 character video id or an absolute http(s) URL.
func ParseSourceID(raw string) (SourceID, error) {
	raw = strings.TrimSpace(raw)
	if videoIDPattern.MatchString(raw) {
		return SourceID{VideoID: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return SourceID{}, invalidSourceID(raw)
	}
	u.Fragment = ""
	return SourceID{URL: u.String()}, nil
}

func invalidSourceID(raw string) error {
	return fmt.Errorf("%w: %w: %q", media.ErrSourceUnavailable, ErrInvalidSourceID, raw)
}
