// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package recommend

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/reelmatch/reelmatch/internal/history"
	"github.com/reelmatch/reelmatch/internal/models"
)

// Fallback supplies a template when no candidate clears the score threshold.
// Implementations return (nil, nil) when they have nothing to offer.
type Fallback interface {
	FallbackTemplate(ctx context.Context, song *models.Asset) (*models.Asset, error)
}

// NoopFallback never offers a fallback.
type NoopFallback struct{}

func (NoopFallback) FallbackTemplate(context.Context, *models.Asset) (*models.Asset, error) {
	return nil, nil
}

// catalogLookup is the subset of the catalog client the fallback needs.
type catalogLookup interface {
	GetByAddress(ctx context.Context, address string) (*models.Asset, error)
}

// HistoryFallback offers the template most often recommended for the song in
// the past, resolved back through the catalog. Errors are treated as "no
// fallback available" since the fallback path must never fail a request that
// already degraded.
type HistoryFallback struct {
	history *history.Store
	catalog catalogLookup
	logger  zerolog.Logger
}

// NewHistoryFallback builds a history-backed fallback.
func NewHistoryFallback(h *history.Store, c catalogLookup, logger zerolog.Logger) *HistoryFallback {
	return &HistoryFallback{
		history: h,
		catalog: c,
		logger:  logger.With().Str("component", "fallback").Logger(),
	}
}

func (f *HistoryFallback) FallbackTemplate(ctx context.Context, song *models.Asset) (*models.Asset, error) {
	templateID, err := f.history.MostRecommendedTemplate(ctx, song.ID)
	if err != nil {
		f.logger.Warn().Err(err).Str("song_id", song.ID).Msg("history lookup for fallback failed")
		return nil, nil
	}
	if templateID == "" {
		return nil, nil
	}

	template, err := f.catalog.GetByAddress(ctx, templateID)
	if err != nil {
		f.logger.Warn().Err(err).Str("template_id", templateID).Msg("catalog lookup for fallback failed")
		return nil, nil
	}
	return template, nil
}
