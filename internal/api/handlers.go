// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/reelmatch/reelmatch/internal/catalog"
	"github.com/reelmatch/reelmatch/internal/logging"
	"github.com/reelmatch/reelmatch/internal/models"
	"github.com/reelmatch/reelmatch/internal/recommend"
	"github.com/reelmatch/reelmatch/internal/seeding"
)

// HealthChecker probes the catalog dependency for the health endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*catalog.HealthStatus, error)
}

// Server holds the handler dependencies and implements every HTTP endpoint.
type Server struct {
	engine  *recommend.Engine
	seeder  *seeding.Seeder
	scores  recommend.ScoreInvalidator
	health  HealthChecker
	version string
	logger  zerolog.Logger

	seedRunning atomic.Bool
}

// NewServer wires the HTTP layer. seeder and scores may be nil when the
// corresponding endpoints are not deployed.
func NewServer(engine *recommend.Engine, seeder *seeding.Seeder, scores recommend.ScoreInvalidator, health HealthChecker, version string, logger zerolog.Logger) *Server {
	return &Server{
		engine:  engine,
		seeder:  seeder,
		scores:  scores,
		health:  health,
		version: version,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// templateResponse is the data payload for POST /api/v1/recommend/template.
type templateResponse struct {
	Recommendation     *recommend.TemplateRecommendation  `json:"recommendation"`
	Alternatives       []recommend.TemplateRecommendation `json:"alternatives"`
	TotalAvailable     int                                `json:"total_available"`
	PerformanceMetrics PerformanceMetrics                 `json:"performance_metrics"`
}

// RecommendTemplate handles POST /api/v1/recommend/template.
func (s *Server) RecommendTemplate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req TemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		s.respondJSON(w, r, http.StatusBadRequest, nil, apiErr)
		return
	}

	result, err := s.engine.RecommendTemplate(r.Context(), req.SongID, req.UserContext.toUserContext(), req.MaxAlternatives)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, &templateResponse{
		Recommendation: result.Recommendation,
		Alternatives:   result.Alternatives,
		TotalAvailable: result.TotalAvailable,
		PerformanceMetrics: PerformanceMetrics{
			ResponseTimeMs:     time.Since(start).Milliseconds(),
			CacheHit:           result.CacheHit,
			ScoringTimeMs:      result.ScoringTimeMs,
			TemplatesEvaluated: result.TemplatesEvaluated,
		},
	}, nil)
}

// variationsResponse is the data payload for POST /api/v1/recommend/variations.
type variationsResponse struct {
	Variations         []recommend.LayerVariation `json:"variations"`
	CurrentSelection   *recommend.LayerVariation  `json:"current_selection"`
	TotalAvailable     int                        `json:"total_available"`
	PerformanceMetrics PerformanceMetrics         `json:"performance_metrics"`
}

// LayerVariations handles POST /api/v1/recommend/variations.
func (s *Server) LayerVariations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req VariationsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		s.respondJSON(w, r, http.StatusBadRequest, nil, apiErr)
		return
	}

	layer, err := models.ParseLayer(req.VaryLayer)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "vary_layer must be one of: stars, looks, moves, worlds", err)
		return
	}

	result, err := s.engine.LayerVariations(r.Context(), req.CurrentTemplateID, layer, req.SongID, req.Limit, req.UserContext.toUserContext())
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, &variationsResponse{
		Variations:       result.Variations,
		CurrentSelection: result.CurrentSelection,
		TotalAvailable:   result.TotalAvailable,
		PerformanceMetrics: PerformanceMetrics{
			ResponseTimeMs:      time.Since(start).Milliseconds(),
			CacheHit:            result.CacheHit,
			VariationsEvaluated: result.VariationsEvaluated,
		},
	}, nil)
}

// InvalidateCache handles DELETE /api/v1/recommend/cache/{songID}.
func (s *Server) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "songID")
	if songID == "" {
		s.respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "songID path parameter is required", nil)
		return
	}

	removed, err := s.engine.InvalidateSong(r.Context(), songID, s.scores)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Cache invalidation failed", err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"song_id":         songID,
		"entries_removed": removed,
	}, nil)
}

// SeedScores handles POST /api/v1/seed/scores. Seeding runs in the
// background; the response only acknowledges the start.
func (s *Server) SeedScores(w http.ResponseWriter, r *http.Request) {
	if s.seeder == nil {
		s.respondError(w, r, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Score seeding is not enabled", nil)
		return
	}
	if !s.seedRunning.CompareAndSwap(false, true) {
		s.respondError(w, r, http.StatusConflict, "SEEDING_IN_PROGRESS", "A seeding run is already in progress", nil)
		return
	}

	requestID := logging.RequestIDFromContext(r.Context())
	go func() {
		defer s.seedRunning.Store(false)

		ctx := logging.ContextWithRequestID(context.Background(), requestID)
		if _, err := s.seeder.SeedScores(ctx); err != nil {
			s.logger.Error().Err(err).Msg("background score seeding failed")
		}
	}()

	s.respondJSON(w, r, http.StatusAccepted, map[string]interface{}{
		"status": "seeding_started",
	}, nil)
}

// Health handles GET /api/v1/health. The service reports degraded rather
// than failing outright when the catalog is down, since cached
// recommendations still work.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{
		"status":  "ok",
		"service": "reelmatch",
	}

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status, err := s.health.HealthCheck(ctx)
		if err != nil {
			payload["status"] = "degraded"
			payload["catalog"] = map[string]interface{}{
				"status": "unreachable",
				"error":  err.Error(),
			}
		} else {
			payload["catalog"] = map[string]interface{}{
				"status":     status.Status,
				"latency_ms": status.Latency.Milliseconds(),
			}
		}
	}

	s.respondJSON(w, r, http.StatusOK, payload, nil)
}

// HealthLive handles GET /api/v1/health/live for liveness probes.
func (s *Server) HealthLive(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"status": "alive",
	}, nil)
}

// respondEngineError maps engine errors to API status codes.
func (s *Server) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, recommend.ErrNotFound):
		s.respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Song or template not found", err)
	case errors.Is(err, recommend.ErrUpstreamUnavailable):
		s.respondError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Catalog service is unavailable", err)
	default:
		s.respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Recommendation failed", err)
	}
}
