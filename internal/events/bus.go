// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

// Package events provides the in-process interaction event bus. Interaction
// recording is decoupled from the HTTP request path: the API handler
// publishes, the consumer persists. Watermill's gochannel Pub/Sub keeps the
// topology single-process while preserving the publish/subscribe seam.
package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

// TopicInteractions carries recorded user-product interactions.
const TopicInteractions = "interactions"

// Bus is the in-process pub/sub fabric.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates a gochannel bus. The output buffer absorbs request-path
// bursts so publishing does not block on the consumer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBus(logger zerolog.Logger) *Bus {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            256,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		newWatermillLogger(logger),
	)
	return &Bus{pubsub: pubsub}
}

// Publisher returns the publish side of the bus.
func (b *Bus) Publisher() message.Publisher { return b.pubsub }

// Subscriber returns the subscribe side of the bus.
func (b *Bus) Subscriber() message.Subscriber { return b.pubsub }

// Close shuts down the bus, closing all subscriber channels.
func (b *Bus) Close() error { return b.pubsub.Close() }

// newWatermillLogger bridges watermill's logging to zerolog.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func newWatermillLogger(logger zerolog.Logger) watermill.LoggerAdapter {
	return &watermillLogger{logger: logger.With().Str("component", "events").Logger()}
}

type watermillLogger struct {
	logger zerolog.Logger
}

var _ watermill.LoggerAdapter = (*watermillLogger)(nil)

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.logger.Error().Err(err), msg, fields)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.logger.Info(), msg, fields)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.logger.Debug(), msg, fields)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.logger.Trace(), msg, fields)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &watermillLogger{logger: ctx.Logger()}
}

func (l *watermillLogger) event(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
