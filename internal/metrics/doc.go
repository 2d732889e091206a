// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements application instrumentation using the Prometheus client
library, exposing metrics for monitoring performance, errors, and system health.

# Overview

The package provides metrics for:
  - Recommendation operation latency, outcomes, and candidate counts
  - Compatibility score computation and score-store hit rates
  - Response cache efficiency and invalidations
  - Catalog service call latency and status
  - Analytics event queueing, batching, and drops
  - Score seeding runs
  - Circuit breaker state transitions
  - HTTP API latency and throughput

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Usage Example

	import (
	    "github.com/reelmatch/reelmatch/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    http.Handle("/metrics", promhttp.Handler())

	    metrics.RecordRecommendation("template", "ok", 23*time.Millisecond)
	    metrics.RecordCacheHit("response")
	}

# Thread Safety

All metric recording functions are thread-safe and designed for concurrent use
from multiple goroutines. The Prometheus client library handles synchronization
internally.

# Cardinality Management

To prevent high cardinality issues:

  - Endpoint labels use route patterns, never raw paths with IDs
  - Drop and error reasons are limited to predefined constants
  - User- and song-specific labels are avoided
*/
package metrics
