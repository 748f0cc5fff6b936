// Package artist provides the central artist record store: artists, their
// per-platform bindings with current metric snapshots, and the append-only
// metric history.
package artist

import (
	"time"

	"github.com/beatm8/backbeat/internal/platform"
)

// Artist is one tracked artist identity, owned by this system.
type Artist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Binding associates an artist with its identifier on one platform.
// At most one binding exists per (artist, platform). PlatformID is empty
// until the identity has been resolved; UpdatedAt is nil until the first
// successful refresh.
type Binding struct {
	ArtistID   string       `json:"artist_id"`
	Platform   platform.Tag `json:"platform"`
	PlatformID string       `json:"platform_id,omitempty"`
	UpdatedAt  *time.Time   `json:"updated_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Snapshot is the latest known metric state for a binding. It is overwritten
// wholesale on every successful refresh; nil fields mean the platform
// omitted the value on the most recent fetch.
type Snapshot struct {
	Followers  *int64     `json:"followers,omitempty"`
	Popularity *int64     `json:"popularity,omitempty"`
	URL        string     `json:"url,omitempty"`
	ImageURL   string     `json:"image_url,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Observation is one append-only historical metric data point.
type Observation struct {
	ID         int64               `json:"id"`
	ArtistID   string              `json:"artist_id"`
	Platform   platform.Tag        `json:"platform"`
	Kind       platform.MetricKind `json:"metric_type"`
	Value      int64               `json:"metric_value"`
	ObservedAt time.Time           `json:"observed_at"`
}

// UnresolvedArtist is an artist that has no identifier for some platform yet.
type UnresolvedArtist struct {
	ArtistID string `json:"artist_id"`
	Name     string `json:"name"`
}

// parseNullableTime parses an RFC3339 string from storage, or nil for NULL.
func parseNullableTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}
