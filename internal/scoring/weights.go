// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package scoring

import (
	"math"
	"time"
)

// Dimension weights for the base compatibility score. They sum to 1.0.
// Overridable for experimentation; the defaults are the production values.
var (
	WeightTempo  = 0.30
	WeightGenre  = 0.25
	WeightEnergy = 0.20
	WeightStyle  = 0.15
	WeightMood   = 0.10
)

// CurrentAlgorithmVersion tags persisted score rows so stale algorithm
// revisions can be told apart after a deploy.
const CurrentAlgorithmVersion = "1.0"

// Breakdown holds the five per-dimension compatibility sub-scores and the
// derived aggregate values.
type Breakdown struct {
	Tempo  float64 `json:"tempo_score"`
	Genre  float64 `json:"genre_score"`
	Energy float64 `json:"energy_score"`
	Style  float64 `json:"style_score"`
	Mood   float64 `json:"mood_score"`

	BaseScore      float64 `json:"base_score"`
	FreshnessBoost float64 `json:"freshness_boost"`
	FinalScore     float64 `json:"final_score"`
}

// Aggregate computes the weighted base score from the sub-scores and stores
// it on the breakdown.
func (b *Breakdown) Aggregate() {
	b.BaseScore = WeightTempo*b.Tempo +
		WeightGenre*b.Genre +
		WeightEnergy*b.Energy +
		WeightStyle*b.Style +
		WeightMood*b.Mood
}

// ApplyFreshness derives the final score from the base score and the boost
// for the given creation time, capped at 1.0.
func (b *Breakdown) ApplyFreshness(createdAt time.Time, now time.Time) {
	b.FreshnessBoost = FreshnessBoost(createdAt, now)
	b.FinalScore = math.Min(b.BaseScore*b.FreshnessBoost, 1.0)
}
