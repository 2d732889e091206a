// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package analytics

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// NewBus creates the in-process analytics message bus. Publisher and
// subscriber sides share the one GoChannel instance.
func NewBus(logger zerolog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger{logger: logger.With().Str("component", "analytics-bus").Logger()},
	)
}

// BusSink publishes event batches onto the analytics bus, one message per
// event.
type BusSink struct {
	publisher message.Publisher
}

// NewBusSink wraps a message publisher as a tracker sink.
func NewBusSink(publisher message.Publisher) *BusSink {
	return &BusSink{publisher: publisher}
}

// PublishBatch publishes each event as its own message. The first publish
// failure aborts the batch; the tracker owns retries.
func (s *BusSink) PublishBatch(_ context.Context, events []Event) error {
	for i := range events {
		payload, err := json.Marshal(&events[i])
		if err != nil {
			return fmt.Errorf("marshal analytics event: %w", err)
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set("event_type", events[i].EventType)
		if err := s.publisher.Publish(Topic, msg); err != nil {
			return fmt.Errorf("publish analytics event: %w", err)
		}
	}
	return nil
}

// Consumer subscribes to the analytics topic and forwards events to a
// handler. The default handler just logs; deployments can hang warehouse
// exporters off the same topic.
type Consumer struct {
	subscriber message.Subscriber
	logger     zerolog.Logger
	handler    func(Event)
}

// NewConsumer creates a consumer for the analytics topic. handler may be
// nil, in which case events are logged at debug level.
func NewConsumer(subscriber message.Subscriber, logger zerolog.Logger, handler func(Event)) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		logger:     logger.With().Str("component", "analytics-consumer").Logger(),
		handler:    handler,
	}
}

// Run consumes events until ctx is cancelled. Malformed payloads are acked
// and skipped; the topic is not a durable queue and replaying a bad message
// cannot fix it.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", Topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				c.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("malformed analytics event")
				msg.Ack()
				continue
			}

			if c.handler != nil {
				c.handler(event)
			} else {
				c.logger.Debug().
					Str("event_type", event.EventType).
					Str("song_id", event.SongID).
					Bool("cache_hit", event.CacheHit).
					Int64("response_time_ms", event.ResponseTimeMs).
					Msg("analytics event")
			}
			msg.Ack()
		}
	}
}

// watermillLogger adapts zerolog to watermill's logging contract.
type watermillLogger struct {
	logger zerolog.Logger
}

func (l watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.logger.Error().Err(err), msg, fields)
}

func (l watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.logger.Info(), msg, fields)
}

func (l watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.logger.Debug(), msg, fields)
}

func (l watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.logger.Trace(), msg, fields)
}

func (l watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return watermillLogger{logger: ctx.Logger()}
}

func (l watermillLogger) event(e *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}
