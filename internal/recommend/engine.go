// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package recommend implements the recommendation orchestrator: it resolves
// songs and candidate templates through the catalog, scores them, applies
// threshold filtering, diversity jitter, and fallback, and assembles cached
// responses. All cache, history, and analytics failures are absorbed here;
// only missing catalog entities and an unreachable catalog surface as errors.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/reelmatch/reelmatch/internal/analytics"
	"github.com/reelmatch/reelmatch/internal/cache"
	"github.com/reelmatch/reelmatch/internal/catalog"
	"github.com/reelmatch/reelmatch/internal/history"
	"github.com/reelmatch/reelmatch/internal/metrics"
	"github.com/reelmatch/reelmatch/internal/models"
	"github.com/reelmatch/reelmatch/internal/scoring"
)

// Catalog is the subset of the asset-catalog client the engine consumes.
type Catalog interface {
	GetByAddress(ctx context.Context, address string) (*models.Asset, error)
	GetByLayer(ctx context.Context, layerCode string, limit int) ([]*models.Asset, error)
	GetCompositesForSong(ctx context.Context, songAddress string, limit int) ([]*models.Asset, error)
}

// Tracker receives fire-and-forget usage events.
type Tracker interface {
	Track(event analytics.Event)
}

// Engine orchestrates template recommendations and layer variations.
type Engine struct {
	cfg       Config
	catalog   Catalog
	scorer    *scoring.Scorer
	respCache cache.Store
	history   *history.Store
	tracker   Tracker
	fallback  Fallback
	jitter    *jitterSource
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEngine builds an engine. respCache, history, tracker, and fallback may
// be nil; the corresponding behavior degrades to compute-always, no history,
// no analytics, and no fallback respectively.
func NewEngine(cfg Config, cat Catalog, scorer *scoring.Scorer, respCache cache.Store, hist *history.Store, tracker Tracker, fallback Fallback, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if fallback == nil {
		fallback = NoopFallback{}
	}
	return &Engine{
		cfg:       cfg,
		catalog:   cat,
		scorer:    scorer,
		respCache: respCache,
		history:   hist,
		tracker:   tracker,
		fallback:  fallback,
		jitter:    newJitterSource(seed, cfg.DiversityFactor),
		logger:    logger.With().Str("component", "recommend").Logger(),
		now:       time.Now,
	}, nil
}

// templateCacheParams is the request shape hashed into the template response
// cache key.
type templateCacheParams struct {
	Context         *UserContext `json:"context"`
	MaxAlternatives int          `json:"max_alternatives"`
}

// RecommendTemplate returns the best-matching template for a song plus
// ranked alternatives. Returns ErrNotFound when the song does not exist or
// has no candidate templates, and ErrUpstreamUnavailable when the catalog
// cannot be reached. A result with a nil Recommendation is valid: it means
// no candidate cleared the threshold and the fallback had nothing.
func (e *Engine) RecommendTemplate(ctx context.Context, songID string, userContext *UserContext, maxAlternatives int) (*RecommendationResult, error) {
	start := e.now()
	maxAlternatives = clampCount(maxAlternatives, defaultAlternatives)

	key := cache.TemplateKey(songID, templateCacheParams{
		Context:         userContext,
		MaxAlternatives: maxAlternatives,
	})
	if cached := e.cachedRecommendation(ctx, key); cached != nil {
		e.emitTemplateEvent(cached, songID, userContext, start, true)
		metrics.RecordRecommendation("template", "cache_hit", e.now().Sub(start))
		return cached, nil
	}

	song, err := e.catalog.GetByAddress(ctx, songID)
	if err != nil {
		return nil, e.translateCatalogError(err)
	}
	if song == nil {
		return nil, fmt.Errorf("song %s: %w", songID, ErrNotFound)
	}

	templates, err := e.catalog.GetCompositesForSong(ctx, song.Address, e.cfg.MaxCandidates)
	if err != nil {
		return nil, e.translateCatalogError(err)
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("no templates for song %s: %w", songID, ErrNotFound)
	}

	scoreStart := e.now()
	scored := e.scorer.ScoreTemplates(ctx, song, templates, userContext.preferences())
	scoringTime := e.now().Sub(scoreStart)

	eligible := make([]scoring.Scored, 0, len(scored))
	for _, sc := range scored {
		if sc.Breakdown.FinalScore >= e.cfg.MinScore {
			eligible = append(eligible, sc)
		}
	}

	if len(eligible) == 0 {
		if fb := e.fallbackCandidate(ctx, song, userContext); fb != nil {
			eligible = append(eligible, *fb)
		}
	}

	// Template ranking jitters scores directly; family grouping only
	// applies to the standalone diversity selection.
	selected := e.jitter.rankWithJitter(eligible)
	if len(selected) > maxAlternatives+1 {
		selected = selected[:maxAlternatives+1]
	}

	result := &RecommendationResult{
		Alternatives:       []TemplateRecommendation{},
		TotalAvailable:     len(templates),
		ScoringTimeMs:      scoringTime.Milliseconds(),
		TemplatesEvaluated: len(scored),
	}
	if len(selected) > 0 {
		primary := recommendationFromScored(selected[0])
		result.Recommendation = &primary
		for _, sc := range selected[1:] {
			result.Alternatives = append(result.Alternatives, recommendationFromScored(sc))
		}
	}

	e.storeResponse(ctx, key, result)
	e.recordHistory(ctx, song, userContext, result)
	e.emitTemplateEvent(result, songID, userContext, start, false)

	metrics.CandidatesEvaluated.Observe(float64(len(scored)))
	metrics.RecordRecommendation("template", "success", e.now().Sub(start))
	return result, nil
}

// LayerVariations returns alternative assets for one layer of a template,
// each scored against the song as a hypothetical substitution.
func (e *Engine) LayerVariations(ctx context.Context, templateID string, layer models.Layer, songID string, limit int, userContext *UserContext) (*VariationResult, error) {
	start := e.now()
	limit = clampCount(limit, defaultVariationLimit)

	key := cache.VariationsKey(templateID, layer.String(), songID)
	if cached := e.cachedVariations(ctx, key); cached != nil {
		metrics.RecordRecommendation("variations", "cache_hit", e.now().Sub(start))
		return cached, nil
	}

	template, err := e.catalog.GetByAddress(ctx, templateID)
	if err != nil {
		return nil, e.translateCatalogError(err)
	}
	if template == nil {
		return nil, fmt.Errorf("template %s: %w", templateID, ErrNotFound)
	}
	song, err := e.catalog.GetByAddress(ctx, songID)
	if err != nil {
		return nil, e.translateCatalogError(err)
	}
	if song == nil {
		return nil, fmt.Errorf("song %s: %w", songID, ErrNotFound)
	}

	assets, err := e.catalog.GetByLayer(ctx, layer.Code(), e.cfg.MaxCandidates)
	if err != nil {
		return nil, e.translateCatalogError(err)
	}

	currentRef := template.ComponentForLayer(layer)
	var current *LayerVariation
	variations := make([]LayerVariation, 0, len(assets))
	evaluated := 0
	for _, asset := range assets {
		if currentRef != "" && asset.Address == currentRef {
			// The component the template already ships is also reported
			// separately, at full compatibility.
			current = &LayerVariation{
				AssetID:            asset.ID,
				AssetName:          asset.Name,
				Address:            asset.Address,
				CompatibilityScore: 1.0,
				Metadata: AssetMetadata{
					CreatedAt:   asset.CreatedAt,
					Tags:        asset.Tags,
					Description: asset.Description,
				},
			}
		}
		hypothetical := template.SubstituteLayer(layer, asset)
		b := e.scorer.ScoreHypothetical(ctx, song, hypothetical, userContext.preferences())
		evaluated++
		variations = append(variations, variationFromAsset(asset, b))
	}

	sortVariations(variations)
	if len(variations) > limit {
		variations = variations[:limit]
	}

	result := &VariationResult{
		Variations:          variations,
		CurrentSelection:    current,
		TotalAvailable:      len(assets),
		VariationsEvaluated: evaluated,
	}

	e.storeResponse(ctx, key, result)
	e.emitVariationsEvent(result, templateID, songID, layer, userContext, start)

	metrics.RecordRecommendation("variations", "success", e.now().Sub(start))
	return result, nil
}

// ScoreInvalidator removes stored raw scores for a song.
type ScoreInvalidator interface {
	DeleteBySong(ctx context.Context, songAddress string) (int, error)
}

// InvalidateSong drops every cached response and stored score for a song.
// Returns the number of cached responses removed.
func (e *Engine) InvalidateSong(ctx context.Context, songID string, scores ScoreInvalidator) (int, error) {
	removed := 0
	if e.respCache != nil {
		removed = e.respCache.DeleteByPrefix(ctx, cache.TemplateKeyPrefix(songID))
		metrics.CacheInvalidations.WithLabelValues("response").Add(float64(removed))
	}
	if scores != nil {
		n, err := scores.DeleteBySong(ctx, songID)
		if err != nil {
			return removed, fmt.Errorf("invalidate stored scores for %s: %w", songID, err)
		}
		metrics.CacheInvalidations.WithLabelValues("score").Add(float64(n))
	}
	e.logger.Info().Str("song_id", songID).Int("responses_removed", removed).Msg("invalidated song caches")
	return removed, nil
}

func (e *Engine) translateCatalogError(err error) error {
	if errors.Is(err, catalog.ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return err
}

// fallbackCandidate asks the fallback for a template and scores it. The
// threshold does not apply to fallback picks.
func (e *Engine) fallbackCandidate(ctx context.Context, song *models.Asset, userContext *UserContext) *scoring.Scored {
	template, err := e.fallback.FallbackTemplate(ctx, song)
	if err != nil || template == nil {
		return nil
	}
	b := e.scorer.ScoreTemplate(ctx, song, template, userContext.preferences())
	e.logger.Debug().Str("song_id", song.ID).Str("template", template.Address).Msg("using fallback template")
	return &scoring.Scored{Template: template, Breakdown: b}
}

func (e *Engine) cachedRecommendation(ctx context.Context, key string) *RecommendationResult {
	data, ok := e.cacheGet(ctx, key)
	if !ok {
		return nil
	}
	var result RecommendationResult
	if err := json.Unmarshal(data, &result); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cached recommendation")
		return nil
	}
	result.CacheHit = true
	return &result
}

func (e *Engine) cachedVariations(ctx context.Context, key string) *VariationResult {
	data, ok := e.cacheGet(ctx, key)
	if !ok {
		return nil
	}
	var result VariationResult
	if err := json.Unmarshal(data, &result); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cached variations")
		return nil
	}
	result.CacheHit = true
	return &result
}

func (e *Engine) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if e.respCache == nil {
		return nil, false
	}
	return e.respCache.Get(ctx, key)
}

// storeResponse writes an assembled response to the cache. Failures are
// logged and absorbed.
func (e *Engine) storeResponse(ctx context.Context, key string, v interface{}) {
	if e.respCache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("failed to encode response for caching")
		return
	}
	if !e.respCache.Set(ctx, key, data, e.cfg.ResponseTTL) {
		e.logger.Warn().Str("key", key).Msg("response cache write rejected")
	}
}

// recordHistory persists the served recommendation for offline analytics.
// Failures are logged and absorbed.
func (e *Engine) recordHistory(ctx context.Context, song *models.Asset, userContext *UserContext, result *RecommendationResult) {
	if e.history == nil || result.Recommendation == nil {
		return
	}
	alternatives := make([]string, len(result.Alternatives))
	for i, alt := range result.Alternatives {
		alternatives[i] = alt.Address
	}
	var recCtx map[string]interface{}
	if userContext != nil && len(userContext.DeviceInfo) > 0 {
		recCtx = make(map[string]interface{}, len(userContext.DeviceInfo))
		for k, v := range userContext.DeviceInfo {
			recCtx[k] = v
		}
	}
	rec := &history.Record{
		SongID:       song.ID,
		UserID:       userContext.userID(),
		TemplateID:   result.Recommendation.Address,
		Score:        result.Recommendation.CompatibilityScore,
		Alternatives: alternatives,
		Context:      recCtx,
		CreatedAt:    e.now(),
	}
	if err := e.history.Insert(ctx, rec); err != nil {
		e.logger.Warn().Err(err).Str("song_id", song.ID).Msg("failed to record recommendation history")
	}
}

func (e *Engine) emitTemplateEvent(result *RecommendationResult, songID string, userContext *UserContext, start time.Time, cacheHit bool) {
	if e.tracker == nil {
		return
	}
	event := analytics.Event{
		EventType:      analytics.EventTemplateRecommendation,
		Timestamp:      e.now(),
		UserID:         userContext.userID(),
		SongID:         songID,
		CacheHit:       cacheHit,
		ResponseTimeMs: e.now().Sub(start).Milliseconds(),
	}
	if result.Recommendation != nil {
		event.TemplateID = result.Recommendation.Address
		event.CompatibilityScore = analytics.Float64(result.Recommendation.CompatibilityScore)
	}
	if !cacheHit {
		event.ScoringTimeMs = analytics.Int64(result.ScoringTimeMs)
		event.TemplatesEvaluated = analytics.Int(result.TemplatesEvaluated)
	}
	e.tracker.Track(event)
}

func (e *Engine) emitVariationsEvent(result *VariationResult, templateID, songID string, layer models.Layer, userContext *UserContext, start time.Time) {
	if e.tracker == nil {
		return
	}
	e.tracker.Track(analytics.Event{
		EventType:           analytics.EventLayerVariations,
		Timestamp:           e.now(),
		UserID:              userContext.userID(),
		SongID:              songID,
		TemplateID:          templateID,
		Layer:               layer.String(),
		CacheHit:            false,
		ResponseTimeMs:      e.now().Sub(start).Milliseconds(),
		VariationsEvaluated: analytics.Int(result.VariationsEvaluated),
	})
}
