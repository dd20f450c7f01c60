// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media holds the track model, the selection policy and the format selector.
package media

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Container is the container family of a track or of a merge output.
type Container string

const (
	ContainerMP4      Container = "mp4"
	ContainerWebM     Container = "webm"
	ContainerMatroska Container = "matroska"
)

// ParseContainer maps a container name or file extension onto a Container.
func ParseContainer(s string) (Container, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "mp4", "m4a", "m4v", "mov":
		return ContainerMP4, nil
	case "webm", "weba":
		return ContainerWebM, nil
	case "mkv", "mka", "matroska":
		return ContainerMatroska, nil
	default:
		return "", fmt.Errorf("unknown container %q", s)
	}
}

// Fragmented reports whether output in this container is written in fragmented,
// streamable mode so playback can start before the file is complete.
func (c Container) Fragmented() bool {
	return c == ContainerMP4
}

// MIMEType is the Content-Type used when delivering a merged stream in c.
func (c Container) MIMEType() string {
	switch c {
	case ContainerMP4:
		return "video/mp4"
	case ContainerWebM:
		return "video/webm"
	default:
		return "video/x-matroska"
	}
}

// MuxerName is the ffmpeg output format name for c.
func (c Container) MuxerName() string {
	switch c {
	case ContainerMP4:
		return "mp4"
	case ContainerWebM:
		return "webm"
	default:
		return "matroska"
	}
}

// Kind says which elementary streams a track carries.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
	KindMuxed Kind = "muxed"
)

// HasVideo reports whether the track carries a video stream.
func (k Kind) HasVideo() bool { return k == KindVideo || k == KindMuxed }

// HasAudio reports whether the track carries an audio stream.
func (k Kind) HasAudio() bool { return k == KindAudio || k == KindMuxed }

// Track describes one encoded stream offered by the source provider.
// Values are produced by a provider and treated as read-only afterwards.
type Track struct {
	ID           string    `json:"id"`
	Container    Container `json:"container"`
	Kind         Kind      `json:"kind"`
	QualityLabel string    `json:"quality_label,omitempty"` // e.g. "1080p", "720p60"
	QualityTier  string    `json:"quality_tier,omitempty"`  // e.g. "hd1080"
	Height       int       `json:"height,omitempty"`
	Bitrate      int64     `json:"bitrate,omitempty"`
	ApproxBytes  int64     `json:"approx_bytes,omitempty"` // 0 when unknown
	SizeExact    bool      `json:"size_exact,omitempty"`   // ApproxBytes is the real byte count
	MIMEType     string    `json:"mime_type,omitempty"`

	// Provider locator. Opaque to everything but the provider that produced it.
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// BaseMIMEType returns the mime type without parameters ("video/mp4; codecs=..." -> "video/mp4").
func (t Track) BaseMIMEType() string {
	mt, _, _ := strings.Cut(t.MIMEType, ";")
	return strings.TrimSpace(mt)
}

var labelHeight = regexp.MustCompile(`^(\d{3,4})p`)

// VideoHeight returns the track height, derived from the quality label if the
// provider did not report one. Zero means unknown.
func (t Track) VideoHeight() int {
	if t.Height > 0 {
		return t.Height
	}
	if m := labelHeight.FindStringSubmatch(t.QualityLabel); m != nil {
		h, _ := strconv.Atoi(m[1])
		return h
	}
	return 0
}

var tierOrder = map[string]int{
	"tiny":    1,
	"small":   2,
	"medium":  3,
	"large":   4,
	"hd720":   5,
	"hd1080":  6,
	"hd1440":  7,
	"hd2160":  8,
	"highres": 9,
}

// TierOrdinal ranks a quality tier name. Unknown tiers rank 0.
func TierOrdinal(tier string) int {
	return tierOrder[strings.ToLower(tier)]
}
