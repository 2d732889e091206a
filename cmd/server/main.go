// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Reelmatch server binary.
//
// Configuration is layered: built-in defaults, an optional YAML file
// (CONFIG_PATH or ./config.yaml), then environment variables. See
// internal/config for the full variable list.
//
// The process runs under a suture supervision tree. SIGINT/SIGTERM trigger
// a graceful shutdown: the HTTP server drains in-flight requests and the
// analytics tracker flushes its final batch.
//
// Example:
//
//	export CATALOG_BASE_URL=http://catalog:3000/api/v1
//	export SCORES_BACKEND=memory
//	export HISTORY_ENABLED=false
//	./reelmatch
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/reelmatch/reelmatch/internal/analytics"
	"github.com/reelmatch/reelmatch/internal/api"
	"github.com/reelmatch/reelmatch/internal/cache"
	"github.com/reelmatch/reelmatch/internal/catalog"
	"github.com/reelmatch/reelmatch/internal/config"
	"github.com/reelmatch/reelmatch/internal/history"
	"github.com/reelmatch/reelmatch/internal/logging"
	"github.com/reelmatch/reelmatch/internal/metrics"
	"github.com/reelmatch/reelmatch/internal/recommend"
	"github.com/reelmatch/reelmatch/internal/scorestore"
	"github.com/reelmatch/reelmatch/internal/scoring"
	"github.com/reelmatch/reelmatch/internal/seeding"
	"github.com/reelmatch/reelmatch/internal/supervisor"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("catalog_url", cfg.Catalog.BaseURL).
		Str("cache_backend", cfg.Cache.Backend).
		Str("scores_backend", cfg.Scores.Backend).
		Bool("history_enabled", cfg.History.Enabled).
		Msg("Starting Reelmatch")

	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logger := logging.Logger()

	// Catalog client.
	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL, logger)

	// Score store: badger on disk, or memory for ephemeral deployments.
	var scoreStore scoring.Store
	var scoreInvalidator recommend.ScoreInvalidator
	switch cfg.Scores.Backend {
	case "badger":
		store, err := scorestore.Open(cfg.Scores.Path, logger)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Scores.Path).Msg("Failed to open score store")
		}
		defer func() {
			if err := store.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing score store")
			}
		}()
		scoreStore = store
		scoreInvalidator = store
	default:
		store := scorestore.NewMemoryStore()
		scoreStore = store
		scoreInvalidator = store
	}

	// Response cache: in-process by default, Redis when configured.
	var respCache cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		redisCache := cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, "response", logger)
		defer func() {
			if err := redisCache.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing redis cache")
			}
		}()
		respCache = redisCache
	default:
		mem := cache.NewMemory("response")
		defer func() {
			if err := mem.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing response cache")
			}
		}()
		respCache = mem
	}

	// Analytics pipeline: tracker -> in-process bus -> consumer.
	bus := analytics.NewBus(logger)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing analytics bus")
		}
	}()
	tracker := analytics.NewTracker(analytics.NewBusSink(bus), logger)
	consumer := analytics.NewConsumer(bus, logger, nil)

	// Recommendation history, optional.
	var histStore *history.Store
	var fallback recommend.Fallback
	if cfg.History.Enabled {
		histStore, err = history.Open(cfg.History.Path)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.History.Path).Msg("Failed to open history store")
		}
		defer func() {
			if err := histStore.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing history store")
			}
		}()
		fallback = recommend.NewHistoryFallback(histStore, catalogClient, logger)
	}

	scorer := scoring.NewScorer(scoreStore, logger)

	engineCfg := recommend.DefaultConfig()
	engineCfg.MinScore = cfg.Recommend.MinScore
	engineCfg.DiversityFactor = cfg.Recommend.DiversityFactor
	engineCfg.ResponseTTL = cfg.Recommend.ResponseTTL
	engineCfg.MaxCandidates = cfg.Recommend.MaxCandidates

	engine, err := recommend.NewEngine(engineCfg, catalogClient, scorer, respCache, histStore, tracker, fallback, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build recommendation engine")
	}

	seeder := seeding.NewSeeder(catalogClient, scorer, tracker, logger)

	server := api.NewServer(engine, seeder, scoreInvalidator, catalogClient, version, logger)
	handler := server.Router(api.RouterConfig{
		CORSOrigins:     cfg.Server.CORSOrigins,
		RateLimitReqs:   cfg.Server.RateLimitReqs,
		RateLimitWindow: cfg.Server.RateLimitWindow,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Supervision tree: analytics layer and API layer under one root.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAnalyticsService(supervisor.NewRunnerService("analytics-tracker", tracker.Run))
	tree.AddAnalyticsService(supervisor.NewRunnerService("analytics-consumer", consumer.Run))
	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := tree.ServeBackground(ctx)

	logging.Info().Str("addr", httpServer.Addr).Msg("HTTP server supervised and starting")

	if cfg.Seeding.WarmupOnStartup {
		go func() {
			warmupCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()

			result, err := seeder.WarmupCache(warmupCtx)
			if err != nil {
				logging.Warn().Err(err).Msg("Startup cache warmup failed")
				return
			}
			logging.Info().
				Int("songs_processed", result.SongsProcessed).
				Int("scores_computed", result.ScoresComputed).
				Msg("Startup cache warmup complete")
		}()
	}

	if err := <-errCh; err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}

	logging.Info().Msg("Shutdown complete")
}
