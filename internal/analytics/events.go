// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package analytics implements fire-and-forget usage event tracking: a
// bounded in-process queue drained in batches onto a message bus. Event
// delivery is best-effort by contract; nothing in this package may fail a
// recommendation request.
package analytics

import "time"

// Event types emitted by the recommendation engine.
const (
	EventTemplateRecommendation = "template_recommendation"
	EventLayerVariations        = "layer_variations"
	EventScoreSeeding           = "score_seeding"
)

// Topic is the message-bus topic analytics events are published on.
const Topic = "analytics.events"

// Event is one usage record. Optional fields are pointers so "absent" and
// "zero" stay distinguishable downstream.
type Event struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`

	UserID     string `json:"user_id,omitempty"`
	SongID     string `json:"song_id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
	Layer      string `json:"layer,omitempty"`

	CompatibilityScore *float64 `json:"compatibility_score,omitempty"`

	CacheHit       bool  `json:"cache_hit"`
	ResponseTimeMs int64 `json:"response_time_ms"`

	ScoringTimeMs       *int64 `json:"scoring_time_ms,omitempty"`
	TemplatesEvaluated  *int   `json:"templates_evaluated,omitempty"`
	VariationsEvaluated *int   `json:"variations_evaluated,omitempty"`
}

// Float64 returns a pointer to v, for optional event fields.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v, for optional event fields.
func Int64(v int64) *int64 { return &v }

// Int returns a pointer to v, for optional event fields.
func Int(v int) *int { return &v }
