// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package analytics

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelmatch/reelmatch/internal/metrics"
)

// Queue and batching bounds. The queue is a hard cap: when full, new events
// are dropped and counted, never queued unboundedly or blocked on.
const (
	queueCapacity = 1024
	batchSize     = 100
	flushInterval = 30 * time.Second
	retryBackoff  = time.Second
)

// Sink receives flushed event batches. A batch failure is reported as a
// whole; the tracker owns retry policy.
type Sink interface {
	PublishBatch(ctx context.Context, events []Event) error
}

// Tracker queues events and drains them to the sink from a single
// background goroutine. Track never blocks the caller.
type Tracker struct {
	sink   Sink
	queue  chan Event
	logger zerolog.Logger
}

// NewTracker creates a tracker draining into sink. Run must be started for
// events to flow.
func NewTracker(sink Sink, logger zerolog.Logger) *Tracker {
	return &Tracker{
		sink:   sink,
		queue:  make(chan Event, queueCapacity),
		logger: logger.With().Str("component", "analytics").Logger(),
	}
}

// Track enqueues an event. When the queue is full the event is dropped and
// counted; recommendation traffic never waits on analytics.
func (t *Tracker) Track(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case t.queue <- event:
		metrics.AnalyticsEventsQueued.Inc()
	default:
		metrics.AnalyticsEventsDropped.WithLabelValues("queue_full").Inc()
		t.logger.Warn().Str("event_type", event.EventType).Msg("analytics queue full, dropping event")
	}
}

// Run drains the queue until ctx is cancelled, flushing when a batch fills
// or the flush interval elapses. The final partial batch is flushed on
// shutdown.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, batchSize)

	for {
		select {
		case <-ctx.Done():
			t.flush(context.Background(), batch)
			return ctx.Err()

		case event := <-t.queue:
			batch = append(batch, event)
			if len(batch) >= batchSize {
				t.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// flush publishes one batch, retrying once after a short backoff. A batch
// that fails both attempts is dropped and counted; there is no requeue, so
// a dead sink can never wedge the queue behind an ever-growing backlog.
func (t *Tracker) flush(ctx context.Context, batch []Event) {
	if len(batch) == 0 {
		return
	}

	start := time.Now()
	err := t.sink.PublishBatch(ctx, batch)
	if err != nil {
		t.logger.Warn().Err(err).Int("events", len(batch)).Msg("analytics flush failed, retrying once")

		select {
		case <-time.After(retryBackoff):
		case <-ctx.Done():
		}

		if err = t.sink.PublishBatch(ctx, batch); err != nil {
			metrics.AnalyticsEventsDropped.WithLabelValues("flush_failed").Add(float64(len(batch)))
			t.logger.Error().Err(err).Int("events", len(batch)).Msg("analytics flush failed twice, dropping batch")
			return
		}
	}

	metrics.AnalyticsBatchSize.Observe(float64(len(batch)))
	metrics.AnalyticsFlushDuration.Observe(time.Since(start).Seconds())
}
