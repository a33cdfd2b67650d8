// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvenn/commendo/internal/metrics"
	"github.com/dvenn/commendo/internal/recommend"
)

// Rebuilder is the slice of the engine the scheduler needs.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*recommend.RebuildResult, error)
}

// RebuildService runs periodic full model rebuilds.
type RebuildService struct {
	engine   Rebuilder
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewRebuildService creates the scheduler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRebuildService(engine Rebuilder, interval, timeout time.Duration, logger zerolog.Logger) *RebuildService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &RebuildService{
		engine:   engine,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With().Str("component", "rebuild-scheduler").Logger(),
	}
}

// Serve implements suture.Service: rebuild on every tick until canceled.
func (s *RebuildService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("Rebuild scheduler started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *RebuildService) runOnce(ctx context.Context) {
	rebuildCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.engine.Rebuild(rebuildCtx)
	if err != nil {
		// A manually triggered rebuild may already hold the slot; that is
		// not a scheduler failure.
		if errors.Is(err, recommend.ErrRebuildInProgress) {
			s.logger.Debug().Msg("Scheduled rebuild skipped, one already running")
			return
		}
		metrics.ModelRebuildsTotal.WithLabelValues("failure").Inc()
		s.logger.Error().Err(err).Msg("Scheduled rebuild failed")
		return
	}

	s.logger.Info().
		Int("model_version", result.ModelVersion).
		Int("pairs", result.PairsGenerated).
		Msg("Scheduled rebuild committed")
}

func (s *RebuildService) String() string { return "rebuild-scheduler" }
