// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package recommend

import (
	"strings"
	"time"

	"github.com/reelmatch/reelmatch/internal/models"
	"github.com/reelmatch/reelmatch/internal/scoring"
)

// UserContext carries the caller's identity and scoring preferences through a
// recommendation request. The context participates in the response cache key:
// structurally equal contexts share cached results.
type UserContext struct {
	UserID      string               `json:"user_id,omitempty"`
	Preferences *scoring.Preferences `json:"preferences,omitempty"`
	DeviceInfo  map[string]string    `json:"device_info,omitempty"`
}

// preferences returns the context's scoring preferences, nil-safe.
func (uc *UserContext) preferences() *scoring.Preferences {
	if uc == nil {
		return nil
	}
	return uc.Preferences
}

// userID returns the context's user identifier, nil-safe.
func (uc *UserContext) userID() string {
	if uc == nil {
		return ""
	}
	return uc.UserID
}

// ScoreDetails is the per-dimension score breakdown exposed on responses.
type ScoreDetails struct {
	TempoScore     float64 `json:"tempo_score"`
	GenreScore     float64 `json:"genre_score"`
	EnergyScore    float64 `json:"energy_score"`
	StyleScore     float64 `json:"style_score"`
	MoodScore      float64 `json:"mood_score"`
	BaseScore      float64 `json:"base_score"`
	FreshnessBoost float64 `json:"freshness_boost"`
	FinalScore     float64 `json:"final_score"`
}

func detailsFromBreakdown(b scoring.Breakdown) *ScoreDetails {
	return &ScoreDetails{
		TempoScore:     b.Tempo,
		GenreScore:     b.Genre,
		EnergyScore:    b.Energy,
		StyleScore:     b.Style,
		MoodScore:      b.Mood,
		BaseScore:      b.BaseScore,
		FreshnessBoost: b.FreshnessBoost,
		FinalScore:     b.FinalScore,
	}
}

// AssetMetadata is the catalog metadata echoed on recommendation entries.
type AssetMetadata struct {
	CreatedAt   time.Time `json:"created_at,omitempty"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description,omitempty"`
}

// TemplateComponents names a composite's per-layer component references.
type TemplateComponents struct {
	SongID  string `json:"song_id,omitempty"`
	StarID  string `json:"star_id,omitempty"`
	LookID  string `json:"look_id,omitempty"`
	MoveID  string `json:"move_id,omitempty"`
	WorldID string `json:"world_id,omitempty"`
}

// componentsFromAsset splits a composite's component list by layer-code
// prefix into the named component shape.
func componentsFromAsset(a *models.Asset) TemplateComponents {
	var tc TemplateComponents
	for _, c := range a.Components {
		switch {
		case strings.HasPrefix(c, models.SongLayerCode):
			tc.SongID = c
		case strings.HasPrefix(c, models.LayerStars.Code()):
			tc.StarID = c
		case strings.HasPrefix(c, models.LayerLooks.Code()):
			tc.LookID = c
		case strings.HasPrefix(c, models.LayerMoves.Code()):
			tc.MoveID = c
		case strings.HasPrefix(c, models.LayerWorlds.Code()):
			tc.WorldID = c
		}
	}
	return tc
}

// TemplateRecommendation is one recommended composite template.
type TemplateRecommendation struct {
	TemplateID         string             `json:"template_id"`
	TemplateName       string             `json:"template_name"`
	Address            string             `json:"address"`
	CompatibilityScore float64            `json:"compatibility_score"`
	Components         TemplateComponents `json:"components"`
	Metadata           AssetMetadata      `json:"metadata"`
	ScoringDetails     *ScoreDetails      `json:"scoring_details,omitempty"`
}

// LayerVariation is one candidate asset for a single layer of a template.
type LayerVariation struct {
	AssetID            string        `json:"asset_id"`
	AssetName          string        `json:"asset_name"`
	Address            string        `json:"address"`
	CompatibilityScore float64       `json:"compatibility_score"`
	Metadata           AssetMetadata `json:"metadata"`
	ScoringDetails     *ScoreDetails `json:"scoring_details,omitempty"`
}

// RecommendationResult is the outcome of a template recommendation request:
// a primary pick plus ranked alternatives. Recommendation is nil only when
// no candidate cleared the score threshold and the fallback produced nothing;
// callers must tolerate an empty result.
type RecommendationResult struct {
	Recommendation *TemplateRecommendation  `json:"recommendation"`
	Alternatives   []TemplateRecommendation `json:"alternatives"`
	TotalAvailable int                      `json:"total_available"`

	CacheHit           bool  `json:"cache_hit"`
	ScoringTimeMs      int64 `json:"score_computation_time_ms,omitempty"`
	TemplatesEvaluated int   `json:"templates_evaluated,omitempty"`
}

// VariationResult is the outcome of a layer variation request.
// CurrentSelection is nil when the template's existing component for the
// layer could not be located among the fetched assets; that is data, not an
// error.
type VariationResult struct {
	Variations       []LayerVariation `json:"variations"`
	CurrentSelection *LayerVariation  `json:"current_selection"`
	TotalAvailable   int              `json:"total_available"`

	CacheHit            bool `json:"cache_hit"`
	VariationsEvaluated int  `json:"variations_evaluated,omitempty"`
}

func recommendationFromScored(sc scoring.Scored) TemplateRecommendation {
	return TemplateRecommendation{
		TemplateID:         sc.Template.ID,
		TemplateName:       sc.Template.Name,
		Address:            sc.Template.Address,
		CompatibilityScore: sc.Breakdown.FinalScore,
		Components:         componentsFromAsset(sc.Template),
		Metadata: AssetMetadata{
			CreatedAt:   sc.Template.CreatedAt,
			Tags:        sc.Template.Tags,
			Description: sc.Template.Description,
		},
		ScoringDetails: detailsFromBreakdown(sc.Breakdown),
	}
}

func variationFromAsset(asset *models.Asset, b scoring.Breakdown) LayerVariation {
	return LayerVariation{
		AssetID:            asset.ID,
		AssetName:          asset.Name,
		Address:            asset.Address,
		CompatibilityScore: b.FinalScore,
		Metadata: AssetMetadata{
			CreatedAt:   asset.CreatedAt,
			Tags:        asset.Tags,
			Description: asset.Description,
		},
		ScoringDetails: detailsFromBreakdown(b),
	}
}
