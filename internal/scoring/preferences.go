// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package scoring

import "math"

// Preference multipliers applied before aggregation.
const (
	energyBoostHigh   = 1.1
	energyBoostLow    = 0.9
	genrePrefMultiple = 1.05
)

// Preferences carries the optional per-user scoring adjustments supplied
// with a recommendation request.
type Preferences struct {
	EnergyPreference string   `json:"energy_preference,omitempty" validate:"omitempty,oneof=low moderate high"`
	GenrePreferences []string `json:"genre_preferences,omitempty"`
}

// Apply adjusts the sub-scores of b for the given preferences and clamps
// every sub-score back into [0, 1]. A nil preference set only performs the
// clamp, so adjusted and unadjusted paths produce equally bounded scores.
func (p *Preferences) Apply(b *Breakdown) {
	if p != nil {
		switch p.EnergyPreference {
		case "high":
			b.Energy *= energyBoostHigh
		case "low":
			b.Energy *= energyBoostLow
		}
		if len(p.GenrePreferences) > 0 {
			b.Genre *= genrePrefMultiple
		}
	}

	b.Tempo = clamp01(b.Tempo)
	b.Genre = clamp01(b.Genre)
	b.Energy = clamp01(b.Energy)
	b.Style = clamp01(b.Style)
	b.Mood = clamp01(b.Mood)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
