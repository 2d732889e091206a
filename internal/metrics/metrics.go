// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation Metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total number of recommendation operations",
		},
		[]string{"operation", "result"}, // operation: "template", "variations"; result: "ok", "not_found", "error"
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "End-to-end duration of recommendation operations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	CandidatesEvaluated = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_candidates_evaluated",
			Help:    "Number of candidates scored per recommendation request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		},
	)

	// Scoring Metrics
	ScoreComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "score_compute_duration_seconds",
			Help:    "Duration of a single fresh compatibility score computation",
			Buckets: prometheus.DefBuckets,
		},
	)

	ScoreCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "score_cache_hits_total",
			Help: "Total number of score store hits",
		},
	)

	ScoreCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "score_cache_misses_total",
			Help: "Total number of score store misses (fresh computation required)",
		},
	)

	// Response Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "response", "score"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry)",
		},
		[]string{"cache_type"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Total number of explicit cache invalidations (prefix deletes)",
		},
		[]string{"cache_type"},
	)

	// Catalog Client Metrics
	CatalogRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Total number of catalog service requests",
		},
		[]string{"operation", "status"}, // operation: "get_by_address", "get_by_layer", "composites_for_song", "health"
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_request_duration_seconds",
			Help:    "Duration of catalog service requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Analytics Tracker Metrics
	AnalyticsEventsQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_events_queued_total",
			Help: "Total number of analytics events accepted into the queue",
		},
	)

	AnalyticsEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_dropped_total",
			Help: "Total number of analytics events dropped",
		},
		[]string{"reason"}, // "queue_full", "flush_failed"
	)

	AnalyticsBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_batch_size",
			Help:    "Number of events in each analytics flush",
			Buckets: []float64{1, 5, 10, 25, 50, 100},
		},
	)

	AnalyticsFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_flush_duration_seconds",
			Help:    "Duration of analytics batch flush operations",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Seeding Metrics
	SeedingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seeding_duration_seconds",
			Help:    "Duration of score seeding runs",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	SeedingScoresComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seeding_scores_computed_total",
			Help: "Total number of scores computed during seeding",
		},
	)

	SeedingErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seeding_errors_total",
			Help: "Total number of per-item seeding failures",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRecommendation records the outcome and duration of one
// recommendation operation
func RecordRecommendation(operation, result string, duration time.Duration) {
	RecommendationsTotal.WithLabelValues(operation, result).Inc()
	RecommendationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCatalogRequest records a catalog service call
func RecordCatalogRequest(operation, status string, duration time.Duration) {
	CatalogRequestsTotal.WithLabelValues(operation, status).Inc()
	CatalogRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheHit records a hit for the given cache type
func RecordCacheHit(cacheType string) {
	CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a miss for the given cache type
func RecordCacheMiss(cacheType string) {
	CacheMisses.WithLabelValues(cacheType).Inc()
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
