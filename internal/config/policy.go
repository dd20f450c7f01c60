// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"slices"

	"github.com/ManuGH/hdmerge/internal/media"
)

func defaultPolicyConfig() PolicyConfig {
	p := media.DefaultPolicy()
	out := PolicyConfig{TargetLabel: p.TargetLabel, TargetTier: p.TargetTier}
	for _, r := range p.Rules {
		out.Rules = append(out.Rules, RuleConfig{
			Container: string(r.Container),
			Audio:     slices.Clone(r.AudioIDs),
			Video:     slices.Clone(r.VideoIDs),
		})
	}
	return out
}

// Policy converts the configured table into a validated media.Policy.
func (c AppConfig) Policy() (media.Policy, error) {
	p := media.Policy{
		TargetLabel: c.Selection.TargetLabel,
		TargetTier:  c.Selection.TargetTier,
	}
	for i, r := range c.Selection.Rules {
		container, err := media.ParseContainer(r.Container)
		if err != nil {
			return media.Policy{}, fmt.Errorf("policy rule %d: %w", i, err)
		}
		p.Rules = append(p.Rules, media.ContainerRule{
			Container: container,
			AudioIDs:  slices.Clone(r.Audio),
			VideoIDs:  slices.Clone(r.Video),
		})
	}
	if err := p.Validate(); err != nil {
		return media.Policy{}, err
	}
	return p, nil
}
