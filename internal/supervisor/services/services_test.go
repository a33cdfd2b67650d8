// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvenn/commendo/internal/recommend"
)

type mockServer struct {
	mu        sync.Mutex
	serveErr  error
	started   chan struct{}
	shutdowns int
	release   chan struct{}
}

func newMockServer(serveErr error) *mockServer {
	return &mockServer{
		serveErr: serveErr,
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (m *mockServer) ListenAndServe() error {
	close(m.started)
	if m.serveErr != nil {
		return m.serveErr
	}
	<-m.release
	return errors.New("http: Server closed")
}

func (m *mockServer) Shutdown(context.Context) error {
	m.mu.Lock()
	m.shutdowns++
	m.mu.Unlock()
	close(m.release)
	return nil
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	t.Parallel()

	server := newMockServer(nil)
	svc := NewHTTPService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-server.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	if server.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", server.shutdowns)
	}
}

func TestHTTPServiceStartupFailure(t *testing.T) {
	t.Parallel()

	server := newMockServer(errors.New("listen tcp :8180: address already in use"))
	svc := NewHTTPService(server, time.Second)

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("Serve should surface the startup failure")
	}
}

type mockRebuilder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockRebuilder) Rebuild(context.Context) (*recommend.RebuildResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &recommend.RebuildResult{Success: true, ModelVersion: m.calls}, nil
}

func (m *mockRebuilder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestRebuildServiceTicks(t *testing.T) {
	t.Parallel()

	rebuilder := &mockRebuilder{}
	svc := NewRebuildService(rebuilder, 20*time.Millisecond, time.Second, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve = %v, want deadline exceeded", err)
	}
	if rebuilder.count() < 2 {
		t.Errorf("rebuilds = %d, want at least 2", rebuilder.count())
	}
}

func TestRebuildServiceSurvivesInProgress(t *testing.T) {
	t.Parallel()

	rebuilder := &mockRebuilder{err: recommend.ErrRebuildInProgress}
	svc := NewRebuildService(rebuilder, 20*time.Millisecond, time.Second, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	// The scheduler must keep running when a tick loses the rebuild slot.
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve = %v, want deadline exceeded", err)
	}
	if rebuilder.count() < 2 {
		t.Errorf("rebuild attempts = %d, want at least 2", rebuilder.count())
	}
}

type mockRunner struct {
	ran chan struct{}
}

func (m *mockRunner) Run(ctx context.Context) error {
	close(m.ran)
	<-ctx.Done()
	return ctx.Err()
}

func TestConsumerService(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{ran: make(chan struct{})}
	svc := NewConsumerService(runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-runner.ran
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
