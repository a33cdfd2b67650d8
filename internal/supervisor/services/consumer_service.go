// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package services

import (
	"context"
)

// Runner is a long-running component with a blocking Run method. Satisfied
// by *events.Consumer.
type Runner interface {
	Run(ctx context.Context) error
}

// ConsumerService hosts the interaction consumer under supervision.
type ConsumerService struct {
	runner Runner
}

// NewConsumerService wraps a runner as a supervised service.
func NewConsumerService(runner Runner) *ConsumerService {
	return &ConsumerService{runner: runner}
}

// Serve implements suture.Service.
func (s *ConsumerService) Serve(ctx context.Context) error {
	return s.runner.Run(ctx)
}

func (s *ConsumerService) String() string { return "interaction-consumer" }
