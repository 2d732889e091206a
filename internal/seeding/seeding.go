// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package seeding pre-computes compatibility scores so first-user requests
// hit warm score rows instead of cold computation. Runs are throttled to
// avoid saturating the catalog: small concurrent batches of songs with a
// short pause between batches. Per-song failures are logged and skipped;
// a run only fails when the initial song listing cannot be fetched.
package seeding

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/reelmatch/reelmatch/internal/analytics"
	"github.com/reelmatch/reelmatch/internal/metrics"
	"github.com/reelmatch/reelmatch/internal/models"
	"github.com/reelmatch/reelmatch/internal/scoring"
)

const (
	// batchSize is how many songs are processed concurrently per batch.
	batchSize = 10

	// batchDelay is the pause between batches.
	batchDelay = 100 * time.Millisecond

	// seedSongLimit caps the song listing for a full seeding run.
	seedSongLimit = 1000

	// warmupSongLimit caps the song listing for a warmup run.
	warmupSongLimit = 50
)

// Catalog is the subset of the asset-catalog client seeding consumes.
type Catalog interface {
	GetByLayer(ctx context.Context, layerCode string, limit int) ([]*models.Asset, error)
	GetCompositesForSong(ctx context.Context, songAddress string, limit int) ([]*models.Asset, error)
}

// Tracker receives the per-run summary event.
type Tracker interface {
	Track(event analytics.Event)
}

// Result summarizes one seeding run.
type Result struct {
	SongsFound     int
	SongsProcessed int
	ScoresComputed int
	Errors         int
	Elapsed        time.Duration
}

// Seeder walks the song catalog and scores each song against its composite
// templates through the cache-aside scorer, populating the score store.
type Seeder struct {
	catalog Catalog
	scorer  *scoring.Scorer
	tracker Tracker
	logger  zerolog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// NewSeeder builds a seeder. tracker may be nil.
func NewSeeder(cat Catalog, scorer *scoring.Scorer, tracker Tracker, logger zerolog.Logger) *Seeder {
	return &Seeder{
		catalog: cat,
		scorer:  scorer,
		tracker: tracker,
		logger:  logger.With().Str("component", "seeding").Logger(),
		sleep:   sleepCtx,
	}
}

// SeedScores scores every song in the catalog against its templates.
func (s *Seeder) SeedScores(ctx context.Context) (*Result, error) {
	return s.run(ctx, "seed", seedSongLimit)
}

// WarmupCache scores the first tranche of songs, intended for process start.
func (s *Seeder) WarmupCache(ctx context.Context) (*Result, error) {
	return s.run(ctx, "warmup", warmupSongLimit)
}

func (s *Seeder) run(ctx context.Context, mode string, songLimit int) (*Result, error) {
	start := time.Now()
	s.logger.Info().Str("mode", mode).Msg("starting score seeding")

	songs, err := s.catalog.GetByLayer(ctx, models.SongLayerCode, songLimit)
	if err != nil {
		metrics.SeedingErrors.Inc()
		return nil, err
	}

	result := &Result{SongsFound: len(songs)}
	for i := 0; i < len(songs); i += batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := i + batchSize
		if end > len(songs) {
			end = len(songs)
		}
		s.processBatch(ctx, songs[i:end], result)

		if end < len(songs) {
			s.sleep(ctx, batchDelay)
		}
	}

	result.Elapsed = time.Since(start)
	metrics.SeedingDuration.Observe(result.Elapsed.Seconds())
	s.logger.Info().
		Str("mode", mode).
		Int("songs_found", result.SongsFound).
		Int("songs_processed", result.SongsProcessed).
		Int("scores_computed", result.ScoresComputed).
		Int("errors", result.Errors).
		Dur("elapsed", result.Elapsed).
		Msg("score seeding complete")

	s.emitEvent(result)
	return result, nil
}

// processBatch scores one batch of songs concurrently. Failures are counted
// and logged per song, never propagated.
func (s *Seeder) processBatch(ctx context.Context, songs []*models.Asset, result *Result) {
	type songOutcome struct {
		scored int
		failed bool
	}
	outcomes := make([]songOutcome, len(songs))

	g, gctx := errgroup.WithContext(ctx)
	for i, song := range songs {
		g.Go(func() error {
			composites, err := s.catalog.GetCompositesForSong(gctx, song.Address, seedSongLimit)
			if err != nil {
				s.logger.Warn().Err(err).Str("song", song.Address).Msg("failed to fetch composites for seeding")
				outcomes[i] = songOutcome{failed: true}
				return nil
			}
			if len(composites) == 0 {
				return nil
			}
			scored := s.scorer.ScoreTemplates(gctx, song, composites, nil)
			outcomes[i] = songOutcome{scored: len(scored)}
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes the batch.
	_ = g.Wait()

	for _, o := range outcomes {
		switch {
		case o.failed:
			result.Errors++
			metrics.SeedingErrors.Inc()
		case o.scored > 0:
			result.SongsProcessed++
			result.ScoresComputed += o.scored
			metrics.SeedingScoresComputed.Add(float64(o.scored))
		}
	}
}

func (s *Seeder) emitEvent(result *Result) {
	if s.tracker == nil {
		return
	}
	s.tracker.Track(analytics.Event{
		EventType:          analytics.EventScoreSeeding,
		Timestamp:          time.Now(),
		ResponseTimeMs:     result.Elapsed.Milliseconds(),
		TemplatesEvaluated: analytics.Int(result.ScoresComputed),
	})
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
