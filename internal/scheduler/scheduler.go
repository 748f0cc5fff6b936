// Package scheduler runs periodic reconciliation cycles in daemon mode.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/beatm8/backbeat/internal/platform"
	"github.com/beatm8/backbeat/internal/review"
	"github.com/beatm8/backbeat/internal/sync"
)

// Runner is the slice of sync.Runner the scheduler drives.
type Runner interface {
	RunRefresh(ctx context.Context, client platform.Client) (*sync.RefreshSummary, error)
	RunResolve(ctx context.Context, client platform.Client) (*sync.ResolveSummary, *sync.ReviewSet, error)
}

// Scheduler periodically runs a refresh pass (and optionally a resolve
// pass) for every enabled platform. Platforms are processed strictly in
// sequence within a cycle; the per-platform run lock additionally guards
// against overlap with manually started runs.
type Scheduler struct {
	runner  Runner
	clients []platform.Client
	sink    *review.Sink
	resolve bool
	logger  *slog.Logger
}

// New creates a scheduler over the given platform clients. When resolve is
// true, each cycle also runs identity resolution and writes review files.
func New(runner Runner, clients []platform.Client, sink *review.Sink, resolve bool, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:  runner,
		clients: clients,
		sink:    sink,
		resolve: resolve,
		logger:  logger.With(slog.String("component", "scheduler")),
	}
}

// Start runs one cycle immediately, then one per interval tick, blocking
// until the context is canceled.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Error("scheduler not started: non-positive interval", "interval", interval.String())
		return
	}
	s.logger.Info("scheduler started", "interval", interval.String(), "platforms", len(s.clients))

	s.runCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	for _, client := range s.clients {
		if ctx.Err() != nil {
			return
		}
		tag := client.Platform()

		if s.resolve {
			_, reviewSet, err := s.runner.RunResolve(ctx, client)
			switch {
			case errors.Is(err, sync.ErrRunInProgress):
				s.logger.Warn("resolve skipped, run already in progress", "platform", string(tag))
			case err != nil:
				s.logger.Error("scheduled resolve failed", "platform", string(tag), "error", err)
			case !reviewSet.Empty():
				if _, _, err := s.sink.Write(reviewSet); err != nil {
					s.logger.Error("writing review files", "platform", string(tag), "error", err)
				}
			}
		}

		_, err := s.runner.RunRefresh(ctx, client)
		switch {
		case errors.Is(err, sync.ErrRunInProgress):
			s.logger.Warn("refresh skipped, run already in progress", "platform", string(tag))
		case err != nil && !errors.Is(err, context.Canceled):
			s.logger.Error("scheduled refresh failed", "platform", string(tag), "error", err)
		}
	}
}
