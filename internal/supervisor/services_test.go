// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type mockHTTPServer struct {
	listenErr   error
	shutdownErr error
	shutdowns   atomic.Int32
	started     chan struct{}
	release     chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (m *mockHTTPServer) ListenAndServe() error {
	close(m.started)
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.release
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(_ context.Context) error {
	m.shutdowns.Add(1)
	close(m.release)
	return m.shutdownErr
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	server := newMockHTTPServer()
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-server.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}

	if server.shutdowns.Load() != 1 {
		t.Fatalf("expected one shutdown call, got %d", server.shutdowns.Load())
	}
}

func TestHTTPServerServiceReportsListenFailure(t *testing.T) {
	server := newMockHTTPServer()
	server.listenErr = errors.New("bind: address already in use")
	svc := NewHTTPServerService(server, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, server.listenErr) {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestRunnerServiceForwardsRun(t *testing.T) {
	want := errors.New("runner stopped")
	svc := NewRunnerService("analytics-tracker", func(_ context.Context) error {
		return want
	})

	if svc.String() != "analytics-tracker" {
		t.Fatalf("unexpected name %q", svc.String())
	}
	if err := svc.Serve(context.Background()); !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestTreeServesAndStops(t *testing.T) {
	tree := NewTree(testSlogLogger(), DefaultTreeConfig())

	var runs atomic.Int32
	tree.AddAnalyticsService(NewRunnerService("probe", func(ctx context.Context) error {
		runs.Add(1)
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("service never started")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected serve error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}
}
