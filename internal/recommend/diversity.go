// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package recommend

import (
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/reelmatch/reelmatch/internal/scoring"
)

// styleFamilies groups template tags into coarse visual-style buckets for
// diversity selection. Order matters: the first family with a matching tag
// wins. Templates matching no family fall into defaultFamily.
var styleFamilies = []struct {
	name     string
	keywords []string
}{
	{"modern", []string{"modern", "futuristic", "tech"}},
	{"vintage", []string{"vintage", "retro", "classic"}},
	{"vibrant", []string{"colorful", "vibrant", "bright"}},
	{"dramatic", []string{"dark", "moody", "dramatic"}},
	{"minimal", []string{"minimal", "clean", "simple"}},
}

const defaultFamily = "general"

// styleFamily classifies a template's tags into one style family.
func styleFamily(tags []string) string {
	lowered := make([]string, len(tags))
	for i, t := range tags {
		lowered[i] = strings.ToLower(t)
	}
	for _, fam := range styleFamilies {
		for _, kw := range fam.keywords {
			for _, t := range lowered {
				if t == kw {
					return fam.name
				}
			}
		}
	}
	return defaultFamily
}

// jitterSource produces bounded random tie-break noise for ranking. Scores
// within the diversity factor of each other rank effectively randomly, so
// equally good templates rotate across requests. The jitter is a ranking
// device only, never a security-relevant random source.
type jitterSource struct {
	mu     sync.Mutex
	rng    *rand.Rand
	factor float64
}

func newJitterSource(seed int64, factor float64) *jitterSource {
	return &jitterSource{
		rng:    rand.New(rand.NewSource(seed)),
		factor: factor,
	}
}

// jitter returns score multiplied by a random factor in [1, 1+factor).
func (j *jitterSource) jitter(score float64) float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return score * (1 + j.rng.Float64()*j.factor)
}

// rankWithJitter sorts candidates by jittered score descending. The jittered
// value is used for ordering only; the scores on the returned entries are
// untouched.
func (j *jitterSource) rankWithJitter(candidates []scoring.Scored) []scoring.Scored {
	type jittered struct {
		scored scoring.Scored
		key    float64
	}
	keyed := make([]jittered, len(candidates))
	for i, c := range candidates {
		keyed[i] = jittered{scored: c, key: j.jitter(c.Breakdown.FinalScore)}
	}
	sort.SliceStable(keyed, func(a, b int) bool {
		return keyed[a].key > keyed[b].key
	})
	ranked := make([]scoring.Scored, len(keyed))
	for i, k := range keyed {
		ranked[i] = k.scored
	}
	return ranked
}

// selectDiverse picks up to limit candidates and ranks them with jitter.
// When the pool fits within limit all candidates pass straight to the jitter
// sort. Otherwise one representative per style family is taken first (best
// candidate of each family, families in first-seen order), then remaining
// slots fill from the leftover pool by score.
func (j *jitterSource) selectDiverse(candidates []scoring.Scored, limit int) []scoring.Scored {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}

	pool := make([]scoring.Scored, len(candidates))
	copy(pool, candidates)
	sort.SliceStable(pool, func(a, b int) bool {
		return pool[a].Breakdown.FinalScore > pool[b].Breakdown.FinalScore
	})

	if len(pool) <= limit {
		return j.rankWithJitter(pool)
	}

	seen := make(map[string]bool, len(styleFamilies)+1)
	taken := make([]bool, len(pool))
	picks := make([]scoring.Scored, 0, limit)

	// One representative per family first.
	for i, c := range pool {
		fam := styleFamily(c.Template.Tags)
		if seen[fam] {
			continue
		}
		seen[fam] = true
		taken[i] = true
		picks = append(picks, c)
		if len(picks) == limit {
			break
		}
	}

	// Fill remaining slots from the score-sorted leftovers.
	for i, c := range pool {
		if len(picks) == limit {
			break
		}
		if taken[i] {
			continue
		}
		picks = append(picks, c)
	}

	return j.rankWithJitter(picks)
}

// sortVariations orders layer variations by compatibility score descending.
func sortVariations(variations []LayerVariation) {
	sort.SliceStable(variations, func(a, b int) bool {
		return variations[a].CompatibilityScore > variations[b].CompatibilityScore
	})
}
