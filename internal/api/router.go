// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package api provides the HTTP surface of the recommendation service: chi
// routing, request validation, and the JSON response envelope.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelmatch/reelmatch/internal/middleware"
)

// RouterConfig controls the cross-cutting middleware on the router.
type RouterConfig struct {
	CORSOrigins     []string
	RateLimitReqs   int
	RateLimitWindow time.Duration
}

// DefaultRouterConfig allows any origin and 100 requests per minute per IP.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSOrigins:     []string{"*"},
		RateLimitReqs:   100,
		RateLimitWindow: time.Minute,
	}
}

// Router assembles the full route tree with the global middleware stack.
func (s *Server) Router(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	// Health endpoints skip rate limiting so probes never get throttled.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", s.Health)
		r.Get("/live", s.HealthLive)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		if cfg.RateLimitReqs > 0 {
			r.Use(httprate.Limit(
				cfg.RateLimitReqs,
				cfg.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
		}

		r.Post("/recommend/template", s.RecommendTemplate)
		r.Post("/recommend/variations", s.LayerVariations)
		r.Delete("/recommend/cache/{songID}", s.InvalidateCache)
		r.Post("/seed/scores", s.SeedScores)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
