// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"

	"github.com/dvenn/commendo/internal/metrics"
	"github.com/dvenn/commendo/internal/recommend"
)

// Publisher publishes interaction events onto the bus. The event's own ID
// doubles as the message UUID so the two are correlatable in logs.
type Publisher struct {
	publisher message.Publisher
}

// NewPublisher wraps the publish side of a bus.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{publisher: pub}
}

// PublishInteraction serializes and publishes one interaction event.
func (p *Publisher) PublishInteraction(ev *recommend.InteractionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode interaction event: %w", err)
	}

	msg := message.NewMessage(ev.ID, payload)
	msg.Metadata.Set("kind", ev.Kind.String())

	if err := p.publisher.Publish(TopicInteractions, msg); err != nil {
		return fmt.Errorf("publish interaction event: %w", err)
	}

	metrics.InteractionsPublished.WithLabelValues(ev.Kind.String()).Inc()
	return nil
}
