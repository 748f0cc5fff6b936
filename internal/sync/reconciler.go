package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/beatm8/backbeat/internal/artist"
	"github.com/beatm8/backbeat/internal/platform"
)

// SnapshotStore is the write surface the reconciler needs.
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, artistID string, tag platform.Tag, snap artist.Snapshot, updatedAt time.Time) error
	AppendMetric(ctx context.Context, artistID string, tag platform.Tag, kind platform.MetricKind, value int64, observedAt time.Time) error
}

// ReconcileStatus classifies the outcome of reconciling one binding.
type ReconcileStatus string

// Reconcile outcomes.
const (
	// StatusUpdated: snapshot upserted and all present metrics appended.
	StatusUpdated ReconcileStatus = "updated"
	// StatusPartial: snapshot upserted but the history append failed. The
	// snapshot write stands; nothing is retried.
	StatusPartial ReconcileStatus = "partial"
	// StatusFailed: the snapshot upsert itself failed. No history was
	// written: history must never describe a state that was not durably
	// stored.
	StatusFailed ReconcileStatus = "failed"
)

// ReconcileResult reports how one binding's reconciliation went.
type ReconcileResult struct {
	Status          ReconcileStatus
	MetricsAppended int
	Err             error
}

// Reconciler merges a fetched profile into the binding's current snapshot
// and appends metric observations to the history log.
type Reconciler struct {
	store  SnapshotStore
	logger *slog.Logger
}

// NewReconciler creates a profile reconciler.
func NewReconciler(store SnapshotStore, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger.With(slog.String("component", "reconciler")),
	}
}

// Reconcile writes the fetched profile for a binding: first the snapshot
// upsert (absent fields overwrite as absent), then one observation per
// metric kind the platform tracks. Metric kinds the platform omitted on this
// fetch are skipped entirely. The snapshot is idempotent per fetched
// profile; the history append is append-only by design, so reconciling the
// same profile twice doubles the observations but not the snapshot.
func (r *Reconciler) Reconcile(ctx context.Context, b artist.Binding, profile *platform.Profile, now time.Time) ReconcileResult {
	snap := artist.Snapshot{
		Followers:  profile.Followers,
		Popularity: profile.Popularity,
		URL:        profile.URL,
		ImageURL:   profile.ImageURL,
	}

	if err := r.store.UpsertSnapshot(ctx, b.ArtistID, b.Platform, snap, now); err != nil {
		r.logger.Error("snapshot upsert failed",
			slog.String("artist_id", b.ArtistID),
			slog.String("platform", string(b.Platform)),
			slog.Any("error", err))
		return ReconcileResult{Status: StatusFailed, Err: err}
	}

	appended := 0
	for _, kind := range b.Platform.MetricKinds() {
		value, ok := profile.Metric(kind)
		if !ok {
			continue
		}
		if err := r.store.AppendMetric(ctx, b.ArtistID, b.Platform, kind, value, now); err != nil {
			r.logger.Error("history append failed",
				slog.String("artist_id", b.ArtistID),
				slog.String("platform", string(b.Platform)),
				slog.String("metric", string(kind)),
				slog.Any("error", err))
			return ReconcileResult{Status: StatusPartial, MetricsAppended: appended, Err: err}
		}
		appended++
	}

	r.logger.Debug("binding reconciled",
		slog.String("artist_id", b.ArtistID),
		slog.String("platform", string(b.Platform)),
		slog.Int("metrics", appended))

	return ReconcileResult{Status: StatusUpdated, MetricsAppended: appended}
}
