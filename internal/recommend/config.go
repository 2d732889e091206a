// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package recommend

import (
	"fmt"
	"time"
)

// Bounds for per-request result counts.
const (
	minResultCount = 1
	maxResultCount = 20

	defaultAlternatives   = 5
	defaultVariationLimit = 8
)

// Config controls the recommendation engine.
type Config struct {
	// MinScore is the compatibility threshold below which candidates are
	// discarded.
	MinScore float64

	// DiversityFactor bounds the random tie-break jitter applied to scores
	// before ranking. Jitter never changes a score by more than this factor.
	DiversityFactor float64

	// ResponseTTL is how long assembled responses stay cached.
	ResponseTTL time.Duration

	// MaxCandidates caps how many composite templates are fetched from the
	// catalog per request.
	MaxCandidates int

	// Seed seeds the jitter source. Zero means seed from the clock.
	Seed int64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinScore:        0.6,
		DiversityFactor: 0.01,
		ResponseTTL:     5 * time.Minute,
		MaxCandidates:   100,
	}
}

// Validate checks config invariants.
func (c Config) Validate() error {
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min score must be in [0,1], got %v", c.MinScore)
	}
	if c.DiversityFactor < 0 || c.DiversityFactor >= 1 {
		return fmt.Errorf("diversity factor must be in [0,1), got %v", c.DiversityFactor)
	}
	if c.ResponseTTL <= 0 {
		return fmt.Errorf("response TTL must be positive, got %v", c.ResponseTTL)
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max candidates must be positive, got %d", c.MaxCandidates)
	}
	return nil
}

// clampCount normalizes a requested result count to [minResultCount,
// maxResultCount], substituting def for zero.
func clampCount(n, def int) int {
	if n == 0 {
		n = def
	}
	if n < minResultCount {
		return minResultCount
	}
	if n > maxResultCount {
		return maxResultCount
	}
	return n
}
