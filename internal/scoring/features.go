// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package scoring implements the rule-based compatibility scoring pipeline:
// per-dimension feature scores, user-preference adjustment, weighted
// aggregation, and the freshness boost.
//
// All feature scorers are pure functions over (song, template) tag/metadata
// pairs. They never fail: missing data yields the neutral score 0.5, and every
// returned value is in [0, 1].
package scoring

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/reelmatch/reelmatch/internal/models"
)

// neutralScore is returned whenever a dimension cannot be evaluated.
const neutralScore = 0.5

// bpmTolerance is the BPM difference at which tempo compatibility reaches zero.
const bpmTolerance = 60.0

// bpmHintPattern extracts numeric BPM hints from template tags like "120bpm".
var bpmHintPattern = regexp.MustCompile(`(\d+)bpm`)

// genreFamilies maps a song genre to related template-tag genres that count
// as a partial match.
var genreFamilies = map[string][]string{
	"pop":        {"electronic", "dance", "synth"},
	"rock":       {"alternative", "indie", "punk"},
	"hip-hop":    {"rap", "urban", "r&b"},
	"electronic": {"edm", "techno", "house", "dance"},
	"jazz":       {"blues", "soul", "funk"},
	"classical":  {"orchestral", "symphonic"},
}

// energyLevels orders the recognized energy tags from low to high.
var energyLevels = map[string]int{
	"low-energy":      0,
	"moderate-energy": 1,
	"high-energy":     2,
}

const defaultEnergyTag = "moderate-energy"

// styleKeywords is the fixed vocabulary for visual/aesthetic style matching.
var styleKeywords = map[string]struct{}{
	"modern": {}, "vintage": {}, "retro": {}, "futuristic": {},
	"minimalist": {}, "colorful": {}, "dark": {}, "bright": {},
	"abstract": {}, "realistic": {}, "artistic": {}, "commercial": {},
}

// moodKeywords is the fixed vocabulary for atmosphere/mood matching.
var moodKeywords = map[string]struct{}{
	"happy": {}, "sad": {}, "energetic": {}, "calm": {},
	"intense": {}, "peaceful": {}, "aggressive": {}, "romantic": {},
	"mysterious": {}, "uplifting": {}, "dramatic": {},
}

// FeatureScorer computes the five raw compatibility sub-scores for a
// (song, template) pair. It is stateless and safe for concurrent use.
type FeatureScorer struct{}

// NewFeatureScorer creates a feature scorer.
func NewFeatureScorer() *FeatureScorer {
	return &FeatureScorer{}
}

// Score computes all five sub-scores for the pair. Every returned sub-score
// is in [0, 1].
func (s *FeatureScorer) Score(song, template *models.Asset) Breakdown {
	songTags := song.NormalizedTags()
	templateTags := template.NormalizedTags()

	return Breakdown{
		Tempo:  s.tempoScore(song.BPM(), templateTags),
		Genre:  s.genreScore(song.Genre(), templateTags),
		Energy: s.energyScore(songTags, templateTags),
		Style:  s.styleScore(songTags, templateTags),
		Mood:   s.moodScore(songTags, templateTags),
	}
}

// tempoScore matches the song BPM against numeric BPM hints in template tags.
// Per-hint compatibility is max(0, 1 - |diff|/60); the best hint wins. A song
// without BPM, a template without hints, or hints that are all out of
// tolerance score neutral.
func (s *FeatureScorer) tempoScore(songBPM float64, templateTags []string) float64 {
	if songBPM <= 0 {
		return neutralScore
	}

	best := 0.0
	matched := false
	for _, tag := range templateTags {
		m := bpmHintPattern.FindStringSubmatch(tag)
		if m == nil {
			continue
		}
		hintBPM, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		matched = true
		compat := math.Max(0, 1-math.Abs(songBPM-float64(hintBPM))/bpmTolerance)
		if compat > best {
			best = compat
		}
	}

	if !matched || best == 0 {
		return neutralScore
	}
	return best
}

// genreScore gives 1.0 for an exact tag match, 0.7 for a genre-family match,
// and 0.3 otherwise. A song without a genre scores neutral.
func (s *FeatureScorer) genreScore(songGenre string, templateTags []string) float64 {
	genre := strings.ToLower(songGenre)
	if genre == "" {
		return neutralScore
	}

	for _, tag := range templateTags {
		if tag == genre {
			return 1.0
		}
	}

	for _, related := range genreFamilies[genre] {
		for _, tag := range templateTags {
			if tag == related {
				return 0.7
			}
		}
	}

	return 0.3
}

// energyScore compares the energy-level tags of both sides. Missing tags
// default to moderate. Equal levels score 1.0, adjacent 0.6, opposite
// extremes 0.2.
func (s *FeatureScorer) energyScore(songTags, templateTags []string) float64 {
	songLevel := energyLevels[energyTag(songTags)]
	templateLevel := energyLevels[energyTag(templateTags)]

	switch diff := abs(songLevel - templateLevel); diff {
	case 0:
		return 1.0
	case 1:
		return 0.6
	default:
		return 0.2
	}
}

// styleScore is the Jaccard similarity of the style-vocabulary tags on each
// side. If either side has no style tags the dimension scores neutral.
func (s *FeatureScorer) styleScore(songTags, templateTags []string) float64 {
	songStyles := vocabularyMatches(songTags, styleKeywords)
	templateStyles := vocabularyMatches(templateTags, styleKeywords)

	if len(songStyles) == 0 || len(templateStyles) == 0 {
		return neutralScore
	}

	intersection := 0
	for tag := range songStyles {
		if _, ok := templateStyles[tag]; ok {
			intersection++
		}
	}

	union := len(songStyles) + len(templateStyles) - intersection
	return float64(intersection) / float64(union)
}

// moodScore matches mood-vocabulary tags. A non-empty intersection scores
// |intersection| / max(|songMoods|, |templateMoods|); disjoint mood sets
// score 0.3; either side empty scores neutral.
func (s *FeatureScorer) moodScore(songTags, templateTags []string) float64 {
	songMoods := vocabularyMatches(songTags, moodKeywords)
	templateMoods := vocabularyMatches(templateTags, moodKeywords)

	if len(songMoods) == 0 || len(templateMoods) == 0 {
		return neutralScore
	}

	intersection := 0
	for tag := range songMoods {
		if _, ok := templateMoods[tag]; ok {
			intersection++
		}
	}

	if intersection == 0 {
		return 0.3
	}
	return float64(intersection) / math.Max(float64(len(songMoods)), float64(len(templateMoods)))
}

// energyTag returns the first recognized energy tag, defaulting to moderate.
func energyTag(tags []string) string {
	for _, tag := range tags {
		if _, ok := energyLevels[tag]; ok {
			return tag
		}
	}
	return defaultEnergyTag
}

// vocabularyMatches returns the set of tags that appear in the vocabulary.
func vocabularyMatches(tags []string, vocab map[string]struct{}) map[string]struct{} {
	matches := make(map[string]struct{})
	for _, tag := range tags {
		if _, ok := vocab[tag]; ok {
			matches[tag] = struct{}{}
		}
	}
	return matches
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
