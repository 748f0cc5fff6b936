package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/beatm8/backbeat/internal/artist"
	"github.com/beatm8/backbeat/internal/platform"
)

// BindingSource lists the bindings eligible for a refresh.
type BindingSource interface {
	ListStaleBindings(ctx context.Context, tag platform.Tag, cutoff time.Time) ([]artist.Binding, error)
}

// Scanner selects the (artist, platform) bindings whose snapshot has gone
// stale and needs refreshing.
type Scanner struct {
	store  BindingSource
	logger *slog.Logger
}

// NewScanner creates a staleness scanner.
func NewScanner(store BindingSource, logger *slog.Logger) *Scanner {
	return &Scanner{
		store:  store,
		logger: logger.With(slog.String("component", "scanner")),
	}
}

// SelectStale returns every binding for the platform whose last refresh is
// strictly older than now-window, or which has never been refreshed, in
// store insertion order. Pure read.
func (s *Scanner) SelectStale(ctx context.Context, tag platform.Tag, window time.Duration, now time.Time) ([]artist.Binding, error) {
	cutoff := now.Add(-window)

	bindings, err := s.store.ListStaleBindings(ctx, tag, cutoff)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("staleness scan completed",
		slog.String("platform", string(tag)),
		slog.Time("cutoff", cutoff),
		slog.Int("stale", len(bindings)))

	return bindings, nil
}
