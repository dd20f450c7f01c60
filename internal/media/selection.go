// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

// Selection is the outcome of format selection: Paired, Single or NotFound.
type Selection interface {
	isSelection()
}

// Paired is a separate audio and video track to be merged into Container.
type Paired struct {
	Audio     Track
	Video     Track
	Container Container
}

// Single is one track delivered as-is, assumed to already carry audio and video.
type Single struct {
	Track Track
}

// NotFound means the catalog holds nothing playable.
type NotFound struct{}

func (Paired) isSelection()   {}
func (Single) isSelection()   {}
func (NotFound) isSelection() {}

// Outcome returns a short label for logs and metrics.
func Outcome(s Selection) string {
	switch s.(type) {
	case Paired:
		return "paired"
	case Single:
		return "single"
	default:
		return "not_found"
	}
}

// Select picks the tracks to deliver for catalog under policy p.
//
// Pairing is only attempted when the catalog passes the high-quality gate. Rules
// are tried in table order and the first container offering both an audio and a
// video id wins. Every other case goes through Fallback, so NotFound is returned
// only when the catalog has no video at all.
func Select(catalog []Track, p Policy) Selection {
	if !p.gate(catalog) {
		return Fallback(catalog)
	}
	for _, rule := range p.Rules {
		audio, okA := firstWithID(catalog, rule.AudioIDs)
		if !okA {
			continue
		}
		video, okV := firstWithID(catalog, rule.VideoIDs)
		if !okV {
			continue
		}
		return Paired{Audio: audio, Video: video, Container: rule.Container}
	}
	return Fallback(catalog)
}

// Fallback returns the track with the highest video quality regardless of audio
// presence: height first, then tier, then bitrate. Earlier catalog entries win ties.
func Fallback(catalog []Track) Selection {
	best := -1
	for i, t := range catalog {
		if !t.Kind.HasVideo() {
			continue
		}
		if best < 0 || betterVideo(t, catalog[best]) {
			best = i
		}
	}
	if best < 0 {
		return NotFound{}
	}
	return Single{Track: catalog[best]}
}

func betterVideo(a, b Track) bool {
	if ha, hb := a.VideoHeight(), b.VideoHeight(); ha != hb {
		return ha > hb
	}
	if ta, tb := TierOrdinal(a.QualityTier), TierOrdinal(b.QualityTier); ta != tb {
		return ta > tb
	}
	return a.Bitrate > b.Bitrate
}
