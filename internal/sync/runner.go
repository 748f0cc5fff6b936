// Package sync implements the staleness-driven reconciliation pipeline:
// selecting stale bindings, fetching replacement data in bounded batches
// through rate-limited platform clients, reconciling fetched profiles into
// snapshot and history writes, and resolving artist names into platform
// identifiers.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/beatm8/backbeat/internal/artist"
	"github.com/beatm8/backbeat/internal/platform"
)

// Store is the full read/write surface the runner needs.
type Store interface {
	BindingSource
	SnapshotStore
	SetPlatformID(ctx context.Context, artistID string, tag platform.Tag, platformID string) error
	ListUnresolvedArtists(ctx context.Context, tag platform.Tag) ([]artist.UnresolvedArtist, error)
}

// Config holds the pipeline settings for one run.
type Config struct {
	FreshnessWindow time.Duration
	BatchSize       int
	BatchDelay      time.Duration
	SearchDelay     time.Duration
	LockDir         string
}

// RefreshSummary aggregates the counters of one refresh run.
type RefreshSummary struct {
	Platform platform.Tag `json:"platform"`
	Scanned  int          `json:"scanned"`
	Fetched  int          `json:"fetched"`
	Updated  int          `json:"updated"`
	Partial  int          `json:"partial"`
	Missing  int          `json:"missing"`
	Failed   int          `json:"failed"`
}

// ResolveSummary aggregates the counters of one identity-resolution run.
type ResolveSummary struct {
	Platform   platform.Tag `json:"platform"`
	Scanned    int          `json:"scanned"`
	Resolved   int          `json:"resolved"`
	Unresolved int          `json:"unresolved"`
	Ambiguous  int          `json:"ambiguous"`
	Failed     int          `json:"failed"`
}

// UnresolvedEntry is one artist whose identity could not be resolved.
type UnresolvedEntry struct {
	ArtistName string `json:"artist_name"`
	Reason     string `json:"reason"`
}

// AmbiguousEntry is one artist with multiple plausible platform identities,
// deferred to human review.
type AmbiguousEntry struct {
	ArtistName string               `json:"artist_name"`
	Candidates []platform.Candidate `json:"candidates"`
}

// ReviewSet accumulates the unresolved and ambiguous outcomes of one
// resolution run for external review. Entries are never silently dropped.
type ReviewSet struct {
	Platform   platform.Tag      `json:"platform"`
	Unresolved []UnresolvedEntry `json:"unresolved"`
	Ambiguous  []AmbiguousEntry  `json:"ambiguous"`
}

// Empty reports whether the review set has nothing to review.
func (r *ReviewSet) Empty() bool {
	return len(r.Unresolved) == 0 && len(r.Ambiguous) == 0
}

// Runner orchestrates one end-to-end pass of either flow. It is stateless
// between runs: there is no persisted cursor, the next run simply re-scans
// for staleness.
type Runner struct {
	store  Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
}

// NewRunner creates a reconciliation runner.
func NewRunner(store Store, cfg Config, logger *slog.Logger) *Runner {
	return &Runner{
		store:  store,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "runner")),
		now:    time.Now,
		sleep:  platform.SleepWithContext,
	}
}

// RunRefresh executes one refresh pass for the client's platform:
// scan stale bindings, batch-fetch their profiles, reconcile each matched
// binding. Individual failures are counted, never fatal; a summary is
// produced even if every binding failed.
func (r *Runner) RunRefresh(ctx context.Context, client platform.Client) (*RefreshSummary, error) {
	tag := client.Platform()

	lock, err := AcquireRunLock(r.cfg.LockDir, tag)
	if err != nil {
		return nil, err
	}
	defer lock.Release() //nolint:errcheck

	summary := &RefreshSummary{Platform: tag}
	now := r.now().UTC()

	scanner := NewScanner(r.store, r.logger)
	bindings, err := scanner.SelectStale(ctx, tag, r.cfg.FreshnessWindow, now)
	if err != nil {
		return nil, err
	}
	summary.Scanned = len(bindings)

	r.logger.Info("refresh run starting",
		slog.String("platform", string(tag)),
		slog.Int("stale", len(bindings)))

	fetcher := NewFetcher(client, r.logger)
	results, err := fetcher.Run(ctx, bindings, r.cfg.BatchSize, r.cfg.BatchDelay)
	if err != nil && len(results) == 0 {
		return nil, err
	}

	reconciler := NewReconciler(r.store, r.logger)
	for _, result := range results {
		if result.Err != nil {
			summary.Failed += len(result.Chunk)
			continue
		}
		summary.Fetched += len(result.Profiles)

		for _, b := range result.Chunk {
			profile := result.Match(b)
			if profile == nil {
				// The platform no longer knows this identifier.
				summary.Missing++
				continue
			}
			switch res := reconciler.Reconcile(ctx, b, profile, now); res.Status {
			case StatusUpdated:
				summary.Updated++
			case StatusPartial:
				summary.Partial++
			case StatusFailed:
				summary.Failed++
			}
		}
	}

	r.logger.Info("refresh run complete",
		slog.String("platform", string(tag)),
		slog.Int("scanned", summary.Scanned),
		slog.Int("fetched", summary.Fetched),
		slog.Int("updated", summary.Updated),
		slog.Int("partial", summary.Partial),
		slog.Int("missing", summary.Missing),
		slog.Int("failed", summary.Failed))

	// A cancellation mid-run still yields the partial summary above.
	if err != nil {
		return summary, err
	}
	return summary, nil
}

// RunResolve executes one identity-resolution pass for the client's
// platform: every artist lacking an identifier is searched by name, with a
// fixed pause between searches, and the outcome recorded. Resolved
// identifiers are written once and never overwritten; unresolved and
// ambiguous outcomes accumulate in the returned ReviewSet.
func (r *Runner) RunResolve(ctx context.Context, client platform.Client) (*ResolveSummary, *ReviewSet, error) {
	tag := client.Platform()

	lock, err := AcquireRunLock(r.cfg.LockDir, tag)
	if err != nil {
		return nil, nil, err
	}
	defer lock.Release() //nolint:errcheck

	summary := &ResolveSummary{Platform: tag}
	review := &ReviewSet{Platform: tag}

	unresolved, err := r.store.ListUnresolvedArtists(ctx, tag)
	if err != nil {
		return nil, nil, err
	}
	summary.Scanned = len(unresolved)

	r.logger.Info("resolve run starting",
		slog.String("platform", string(tag)),
		slog.Int("artists", len(unresolved)))

	resolver := NewResolver(client, r.logger)
	for i, u := range unresolved {
		if i > 0 {
			if err := r.sleep(ctx, r.cfg.SearchDelay); err != nil {
				return summary, review, err
			}
		}

		resolution, err := resolver.Resolve(ctx, u.Name)
		if err != nil {
			if ctx.Err() != nil {
				return summary, review, ctx.Err()
			}
			r.logger.Error("identity search failed",
				slog.String("name", u.Name), slog.Any("error", err))
			summary.Failed++
			continue
		}

		switch resolution.Outcome {
		case OutcomeResolved:
			if err := r.store.SetPlatformID(ctx, u.ArtistID, tag, resolution.PlatformID); err != nil {
				if errors.Is(err, artist.ErrIdentifierExists) {
					r.logger.Warn("identifier already set, keeping existing",
						slog.String("artist_id", u.ArtistID))
					continue
				}
				r.logger.Error("storing identifier failed",
					slog.String("artist_id", u.ArtistID), slog.Any("error", err))
				summary.Failed++
				continue
			}
			summary.Resolved++
		case OutcomeUnresolved:
			summary.Unresolved++
			review.Unresolved = append(review.Unresolved, UnresolvedEntry{
				ArtistName: u.Name,
				Reason:     resolution.Reason,
			})
		case OutcomeAmbiguous:
			summary.Ambiguous++
			review.Ambiguous = append(review.Ambiguous, AmbiguousEntry{
				ArtistName: u.Name,
				Candidates: resolution.Candidates,
			})
		}
	}

	r.logger.Info("resolve run complete",
		slog.String("platform", string(tag)),
		slog.Int("scanned", summary.Scanned),
		slog.Int("resolved", summary.Resolved),
		slog.Int("unresolved", summary.Unresolved),
		slog.Int("ambiguous", summary.Ambiguous),
		slog.Int("failed", summary.Failed))

	return summary, review, nil
}
