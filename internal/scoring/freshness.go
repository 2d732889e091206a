// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package scoring

import "time"

// Freshness tier boundaries and their multipliers. A template younger than
// a boundary gets that tier's boost; older than all three gets no boost.
const (
	freshnessTier1Days = 7
	freshnessTier2Days = 30
	freshnessTier3Days = 90

	freshnessBoostTier1 = 1.20
	freshnessBoostTier2 = 1.10
	freshnessBoostTier3 = 1.05
	freshnessBoostNone  = 1.00
)

// FreshnessBoost returns the recency multiplier for a template created at
// createdAt, evaluated at now. A zero createdAt means the creation time is
// unknown and yields no boost.
func FreshnessBoost(createdAt, now time.Time) float64 {
	if createdAt.IsZero() {
		return freshnessBoostNone
	}

	ageDays := now.Sub(createdAt).Hours() / 24

	switch {
	case ageDays < freshnessTier1Days:
		return freshnessBoostTier1
	case ageDays < freshnessTier2Days:
		return freshnessBoostTier2
	case ageDays < freshnessTier3Days:
		return freshnessBoostTier3
	default:
		return freshnessBoostNone
	}
}
