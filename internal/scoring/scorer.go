// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package scoring

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/reelmatch/reelmatch/internal/metrics"
	"github.com/reelmatch/reelmatch/internal/models"
)

// defaultConcurrency bounds parallel candidate scoring within one request.
const defaultConcurrency = 8

// scoreStaleness is how long a stored score row is served before it is
// treated as a miss and recomputed.
const scoreStaleness = 24 * time.Hour

// StoredScore is one persisted score row for a (song, template) pair. The
// breakdown holds raw feature sub-scores only; preference adjustment,
// aggregation, and freshness are applied per-request after retrieval so one
// row serves every user.
type StoredScore struct {
	SongAddress     string    `json:"song_address"`
	TemplateAddress string    `json:"template_address"`
	Breakdown       Breakdown `json:"breakdown"`
	AlgorithmVer    string    `json:"algorithm_version"`
	ComputedAt      time.Time `json:"computed_at"`
}

// Store persists computed scores keyed by (song, template) pair.
//
// Get returns nil without error on a miss; implementations must also treat
// rows older than the staleness window as misses. Put is an idempotent
// upsert: at most one live row exists per pair, and concurrent writers for
// the same pair resolve last-writer-wins.
type Store interface {
	Get(ctx context.Context, songAddr, templateAddr string) (*StoredScore, error)
	Put(ctx context.Context, rec *StoredScore) error
}

// Scored pairs a candidate with its computed breakdown.
type Scored struct {
	Template  *models.Asset
	Breakdown Breakdown
}

// Scorer is the cache-aside scoring service. It consults the score store
// before computing, writes fresh computations back, and never lets store
// failures surface to callers.
type Scorer struct {
	features    *FeatureScorer
	store       Store
	logger      zerolog.Logger
	concurrency int
	now         func() time.Time
}

// NewScorer creates a scoring service backed by the given store. A nil store
// disables persistence and every score is computed fresh.
func NewScorer(store Store, logger zerolog.Logger) *Scorer {
	return &Scorer{
		features:    NewFeatureScorer(),
		store:       store,
		logger:      logger.With().Str("component", "scoring").Logger(),
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
}

// ScoreTemplate scores one (song, template) pair, store-first. The returned
// breakdown has preferences applied, the base score aggregated, and the
// freshness boost folded into the final score.
func (s *Scorer) ScoreTemplate(ctx context.Context, song, template *models.Asset, prefs *Preferences) Breakdown {
	raw, cached := s.lookupRaw(ctx, song.Address, template.Address)
	if !cached {
		start := s.now()
		raw = s.features.Score(song, template)
		metrics.ScoreComputeDuration.Observe(s.now().Sub(start).Seconds())
		s.persist(ctx, song.Address, template.Address, raw)
	}

	return s.finalize(raw, template.CreatedAt, prefs)
}

// ScoreTemplates scores every candidate concurrently, bounded by the
// scorer's concurrency limit. Candidates that fail to score are skipped with
// a log line; the returned slice preserves the input candidate order.
func (s *Scorer) ScoreTemplates(ctx context.Context, song *models.Asset, templates []*models.Asset, prefs *Preferences) []Scored {
	results := make([]*Scored, len(templates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, tpl := range templates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := s.ScoreTemplate(gctx, song, tpl, prefs)
			results[i] = &Scored{Template: tpl, Breakdown: b}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn().Err(err).
			Str("song", song.Address).
			Msg("candidate scoring interrupted")
	}

	scored := make([]Scored, 0, len(templates))
	for _, r := range results {
		if r != nil {
			scored = append(scored, *r)
		}
	}
	return scored
}

// ScoreHypothetical scores a synthetic template (a real template with one
// layer component substituted) against the song. Hypothetical templates are
// never persisted: they do not exist in the catalog, so caching them under
// any identity would poison the store.
func (s *Scorer) ScoreHypothetical(ctx context.Context, song, hypothetical *models.Asset, prefs *Preferences) Breakdown {
	raw := s.features.Score(song, hypothetical)
	return s.finalize(raw, hypothetical.CreatedAt, prefs)
}

// lookupRaw fetches the stored raw sub-scores for the pair. Store errors are
// logged and reported as misses so scoring always proceeds.
func (s *Scorer) lookupRaw(ctx context.Context, songAddr, templateAddr string) (Breakdown, bool) {
	if s.store == nil {
		return Breakdown{}, false
	}

	rec, err := s.store.Get(ctx, songAddr, templateAddr)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("song", songAddr).
			Str("template", templateAddr).
			Msg("score store read failed, computing fresh")
		metrics.ScoreCacheMisses.Inc()
		return Breakdown{}, false
	}
	if rec == nil {
		metrics.ScoreCacheMisses.Inc()
		return Breakdown{}, false
	}

	metrics.ScoreCacheHits.Inc()
	return rec.Breakdown, true
}

// persist upserts the raw sub-scores for the pair. Failures are swallowed;
// the store is an optimization, not a dependency.
func (s *Scorer) persist(ctx context.Context, songAddr, templateAddr string, raw Breakdown) {
	if s.store == nil {
		return
	}

	rec := &StoredScore{
		SongAddress:     songAddr,
		TemplateAddress: templateAddr,
		Breakdown:       raw,
		AlgorithmVer:    CurrentAlgorithmVersion,
		ComputedAt:      s.now(),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		s.logger.Warn().Err(err).
			Str("song", songAddr).
			Str("template", templateAddr).
			Msg("score store write failed")
	}
}

// finalize applies preferences, aggregates the base score, and folds in the
// freshness boost. raw is copied so stored sub-scores stay unadjusted.
func (s *Scorer) finalize(raw Breakdown, createdAt time.Time, prefs *Preferences) Breakdown {
	b := raw
	prefs.Apply(&b)
	b.Aggregate()
	b.ApplyFreshness(createdAt, s.now())
	return b
}
