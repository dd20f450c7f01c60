// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"errors"
	"fmt"
	"slices"
)

// ContainerRule lists the track ids acceptable for pairing within one container.
type ContainerRule struct {
	Container Container
	AudioIDs  []string
	VideoIDs  []string
}

// Policy is the ordered pairing table plus the high-quality gate. It is built
// once at startup and shared read-only by all requests.
type Policy struct {
	TargetLabel string
	TargetTier  string
	Rules       []ContainerRule
}

// DefaultPolicy pairs the 1080p mp4 tracks first and falls back to webm.
func DefaultPolicy() Policy {
	return Policy{
		TargetLabel: "1080p",
		TargetTier:  "hd1080",
		Rules: []ContainerRule{
			{
				Container: ContainerMP4,
				AudioIDs:  []string{"140", "141"},
				VideoIDs:  []string{"137", "299", "399"},
			},
			{
				Container: ContainerWebM,
				AudioIDs:  []string{"251"},
				VideoIDs:  []string{"248"},
			},
		},
	}
}

// Validate checks the table is usable: a gate, at least one rule, known and
// unique containers, and non-empty id sets.
func (p Policy) Validate() error {
	if p.TargetLabel == "" && p.TargetTier == "" {
		return errors.New("policy: target label or tier required")
	}
	if len(p.Rules) == 0 {
		return errors.New("policy: at least one container rule required")
	}
	seen := make(map[Container]struct{}, len(p.Rules))
	for i, r := range p.Rules {
		if _, err := ParseContainer(string(r.Container)); err != nil {
			return fmt.Errorf("policy: rule %d: %w", i, err)
		}
		if _, dup := seen[r.Container]; dup {
			return fmt.Errorf("policy: rule %d: duplicate container %q", i, r.Container)
		}
		seen[r.Container] = struct{}{}
		if len(r.AudioIDs) == 0 || len(r.VideoIDs) == 0 {
			return fmt.Errorf("policy: rule %d (%s): audio and video ids required", i, r.Container)
		}
	}
	return nil
}

// gate reports whether the catalog holds a track at the target quality.
func (p Policy) gate(catalog []Track) bool {
	for _, t := range catalog {
		if p.TargetLabel != "" && t.QualityLabel == p.TargetLabel {
			return true
		}
		if p.TargetTier != "" && t.QualityTier == p.TargetTier {
			return true
		}
	}
	return false
}

func firstWithID(catalog []Track, ids []string) (Track, bool) {
	for _, t := range catalog {
		if slices.Contains(ids, t.ID) {
			return t, true
		}
	}
	return Track{}, false
}
