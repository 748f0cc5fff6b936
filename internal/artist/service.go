package artist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beatm8/backbeat/internal/platform"
)

// ErrIdentifierExists is returned by SetPlatformID when the binding already
// carries an identifier. Platform identifiers are write-once.
var ErrIdentifierExists = errors.New("platform identifier already set")

// bindingColumns is the ordered list of binding columns for SELECT queries.
const bindingColumns = `artist_id, platform, platform_id, updated_at, created_at`

// Service provides artist, binding, snapshot, and metric history operations.
type Service struct {
	db *sql.DB
}

// NewService creates an artist service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// CreateArtist inserts a new artist. A missing ID is generated.
func (s *Service) CreateArtist(ctx context.Context, a *Artist) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artists (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, a.ID, a.Name, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("creating artist: %w", err)
	}
	return nil
}

// GetArtist retrieves an artist by primary key, or nil if not found.
func (s *Service) GetArtist(ctx context.Context, id string) (*Artist, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM artists WHERE id = ?
	`, id)

	var a Artist
	var created, updated string
	err := row.Scan(&a.ID, &a.Name, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting artist: %w", err)
	}
	if t := parseNullableTime(&created); t != nil {
		a.CreatedAt = *t
	}
	if t := parseNullableTime(&updated); t != nil {
		a.UpdatedAt = *t
	}
	return &a, nil
}

// SeedBinding creates a binding row for (artist, platform). platformID may
// be empty for bindings whose identity is still unresolved. Existing
// bindings are left untouched.
func (s *Service) SeedBinding(ctx context.Context, artistID string, tag platform.Tag, platformID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artist_platform_profiles (artist_id, platform, platform_id, created_at)
		VALUES (?, ?, NULLIF(?, ''), ?)
		ON CONFLICT (artist_id, platform) DO NOTHING
	`, artistID, string(tag), platformID, now)
	if err != nil {
		return fmt.Errorf("seeding binding: %w", err)
	}
	return nil
}

// ListBindings returns all bindings for the given platform in insertion order.
func (s *Service) ListBindings(ctx context.Context, tag platform.Tag) ([]Binding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bindingColumns+`
		FROM artist_platform_profiles
		WHERE platform = ?
		ORDER BY id
	`, string(tag))
	if err != nil {
		return nil, fmt.Errorf("listing bindings: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return collectBindings(rows)
}

// ListStaleBindings returns the bindings for the platform that carry an
// identifier and whose snapshot is older than cutoff or has never been
// refreshed, in insertion order.
func (s *Service) ListStaleBindings(ctx context.Context, tag platform.Tag, cutoff time.Time) ([]Binding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bindingColumns+`
		FROM artist_platform_profiles
		WHERE platform = ?
		  AND platform_id IS NOT NULL AND platform_id != ''
		  AND (updated_at IS NULL OR updated_at < ?)
		ORDER BY id
	`, string(tag), cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("listing stale bindings: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return collectBindings(rows)
}

// GetBinding retrieves one binding, or nil if not found.
func (s *Service) GetBinding(ctx context.Context, artistID string, tag platform.Tag) (*Binding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+bindingColumns+`
		FROM artist_platform_profiles
		WHERE artist_id = ? AND platform = ?
	`, artistID, string(tag))

	b, err := scanBinding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting binding: %w", err)
	}
	return b, nil
}

// GetSnapshot retrieves the current snapshot for a binding, or nil if the
// binding does not exist.
func (s *Service) GetSnapshot(ctx context.Context, artistID string, tag platform.Tag) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT followers, popularity, url, image_url, updated_at
		FROM artist_platform_profiles
		WHERE artist_id = ? AND platform = ?
	`, artistID, string(tag))

	var snap Snapshot
	var urlCol, imageURL, updated *string
	err := row.Scan(&snap.Followers, &snap.Popularity, &urlCol, &imageURL, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}
	if urlCol != nil {
		snap.URL = *urlCol
	}
	if imageURL != nil {
		snap.ImageURL = *imageURL
	}
	snap.UpdatedAt = parseNullableTime(updated)
	return &snap, nil
}

// UpsertSnapshot replaces the snapshot fields of a binding with the given
// values, stamping updatedAt. Nil fields are written as NULL: the latest
// fetch is trusted completely, there is no merge with previous values.
// Creates the binding row if none exists.
func (s *Service) UpsertSnapshot(ctx context.Context, artistID string, tag platform.Tag, snap Snapshot, updatedAt time.Time) error {
	stamp := updatedAt.UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artist_platform_profiles
			(artist_id, platform, followers, popularity, url, image_url, updated_at, created_at)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?)
		ON CONFLICT (artist_id, platform) DO UPDATE SET
			followers = excluded.followers,
			popularity = excluded.popularity,
			url = excluded.url,
			image_url = excluded.image_url,
			updated_at = excluded.updated_at
	`, artistID, string(tag), snap.Followers, snap.Popularity, snap.URL, snap.ImageURL, stamp, stamp)
	if err != nil {
		return fmt.Errorf("upserting snapshot: %w", err)
	}
	return nil
}

// AppendMetric appends one observation to the metric history log.
func (s *Service) AppendMetric(ctx context.Context, artistID string, tag platform.Tag, kind platform.MetricKind, value int64, observedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artist_metrics_history (artist_id, platform, metric_type, metric_value, observed_at)
		VALUES (?, ?, ?, ?, ?)
	`, artistID, string(tag), string(kind), value, observedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("appending metric: %w", err)
	}
	return nil
}

// ListObservations returns the metric history for one binding and kind in
// insertion order.
func (s *Service) ListObservations(ctx context.Context, artistID string, tag platform.Tag, kind platform.MetricKind) ([]Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, artist_id, platform, metric_type, metric_value, observed_at
		FROM artist_metrics_history
		WHERE artist_id = ? AND platform = ? AND metric_type = ?
		ORDER BY id
	`, artistID, string(tag), string(kind))
	if err != nil {
		return nil, fmt.Errorf("listing observations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var observations []Observation
	for rows.Next() {
		var o Observation
		var tagCol, kindCol, observed string
		if err := rows.Scan(&o.ID, &o.ArtistID, &tagCol, &kindCol, &o.Value, &observed); err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}
		o.Platform = platform.Tag(tagCol)
		o.Kind = platform.MetricKind(kindCol)
		if t := parseNullableTime(&observed); t != nil {
			o.ObservedAt = *t
		}
		observations = append(observations, o)
	}
	return observations, rows.Err()
}

// SetPlatformID records a freshly resolved platform identifier on a binding.
// Identifiers are write-once: if the binding already carries one, the call
// fails with ErrIdentifierExists and nothing is changed. Creates the binding
// row if none exists.
func (s *Service) SetPlatformID(ctx context.Context, artistID string, tag platform.Tag, platformID string) error {
	if platformID == "" {
		return fmt.Errorf("platform identifier must not be empty")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO artist_platform_profiles (artist_id, platform, platform_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (artist_id, platform) DO UPDATE SET
			platform_id = excluded.platform_id
		WHERE artist_platform_profiles.platform_id IS NULL
		   OR artist_platform_profiles.platform_id = ''
	`, artistID, string(tag), platformID, now)
	if err != nil {
		return fmt.Errorf("setting platform identifier: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("setting platform identifier: %w", err)
	}
	if rows == 0 {
		return ErrIdentifierExists
	}
	return nil
}

// ListUnresolvedArtists returns the artists that have no identifier on the
// given platform (either no binding row, or a binding without an ID).
func (s *Service) ListUnresolvedArtists(ctx context.Context, tag platform.Tag) ([]UnresolvedArtist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.name
		FROM artists a
		LEFT JOIN artist_platform_profiles p
			ON p.artist_id = a.id AND p.platform = ?
		WHERE p.platform_id IS NULL OR p.platform_id = ''
		ORDER BY a.rowid
	`, string(tag))
	if err != nil {
		return nil, fmt.Errorf("listing unresolved artists: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var unresolved []UnresolvedArtist
	for rows.Next() {
		var u UnresolvedArtist
		if err := rows.Scan(&u.ArtistID, &u.Name); err != nil {
			return nil, fmt.Errorf("scanning unresolved artist: %w", err)
		}
		unresolved = append(unresolved, u)
	}
	return unresolved, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanBinding(row scanner) (*Binding, error) {
	var b Binding
	var tagCol string
	var platformID, updated *string
	var created string
	if err := row.Scan(&b.ArtistID, &tagCol, &platformID, &updated, &created); err != nil {
		return nil, err
	}
	b.Platform = platform.Tag(tagCol)
	if platformID != nil {
		b.PlatformID = *platformID
	}
	b.UpdatedAt = parseNullableTime(updated)
	if t := parseNullableTime(&created); t != nil {
		b.CreatedAt = *t
	}
	return &b, nil
}

func collectBindings(rows *sql.Rows) ([]Binding, error) {
	var bindings []Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning binding: %w", err)
		}
		bindings = append(bindings, *b)
	}
	return bindings, rows.Err()
}
