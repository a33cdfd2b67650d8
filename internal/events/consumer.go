// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package events

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/dvenn/commendo/internal/metrics"
	"github.com/dvenn/commendo/internal/recommend"
)

// InteractionStore persists consumed interaction events. Implemented by the
// database layer.
type InteractionStore interface {
	InsertInteraction(ctx context.Context, ev *recommend.InteractionEvent) (bool, error)
}

// ConsumerStats holds runtime counters for introspection.
type ConsumerStats struct {
	Received    int64 `json:"received"`
	Persisted   int64 `json:"persisted"`
	Deduped     int64 `json:"deduped"`
	ParseErrors int64 `json:"parse_errors"`
	StoreErrors int64 `json:"store_errors"`
}

// Consumer drains the interactions topic into the store.
type Consumer struct {
	subscriber message.Subscriber
	store      InteractionStore
	logger     zerolog.Logger

	received    atomic.Int64
	persisted   atomic.Int64
	deduped     atomic.Int64
	parseErrors atomic.Int64
	storeErrors atomic.Int64
}

// NewConsumer creates a consumer reading from the bus and writing to the
// store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewConsumer(sub message.Subscriber, store InteractionStore, logger zerolog.Logger) *Consumer {
	return &Consumer{
		subscriber: sub,
		store:      store,
		logger:     logger.With().Str("component", "consumer").Logger(),
	}
}

// Run consumes until the context is canceled or the subscription channel
// closes. Messages are always acked: a malformed payload is unrecoverable,
// and a store failure is logged and counted rather than redelivered forever.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, TopicInteractions)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicInteractions, err)
	}

	c.logger.Info().Str("topic", TopicInteractions).Msg("Interaction consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.handle(ctx, msg)
			msg.Ack()
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	c.received.Add(1)

	var ev recommend.InteractionEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		c.parseErrors.Add(1)
		metrics.InteractionConsumeErrors.Inc()
		c.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Malformed interaction payload")
		return
	}

	written, err := c.store.InsertInteraction(ctx, &ev)
	if err != nil {
		c.storeErrors.Add(1)
		metrics.InteractionConsumeErrors.Inc()
		c.logger.Error().Err(err).
			Str("user_id", ev.UserID).
			Str("product_id", ev.ProductID).
			Msg("Failed to persist interaction")
		return
	}
	if !written {
		// Duplicate like, toggled off by the store.
		c.deduped.Add(1)
		return
	}

	c.persisted.Add(1)
	metrics.InteractionsConsumed.WithLabelValues(ev.Kind.String()).Inc()
}

// Stats returns a snapshot of the consumer counters.
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Received:    c.received.Load(),
		Persisted:   c.persisted.Load(),
		Deduped:     c.deduped.Load(),
		ParseErrors: c.parseErrors.Load(),
		StoreErrors: c.storeErrors.Load(),
	}
}
