// Package platform defines the common types and capability interface for
// external music-platform adapters.
package platform

import (
	"context"
	"fmt"
)

// Tag uniquely identifies an external music platform.
type Tag string

// Known platform tags.
const (
	TagSpotify  Tag = "spotify"
	TagMixcloud Tag = "mixcloud"
)

// AllTags returns all known platform tags in display order.
func AllTags() []Tag {
	return []Tag{TagSpotify, TagMixcloud}
}

// Valid reports whether t is a known platform tag.
func (t Tag) Valid() bool {
	switch t {
	case TagSpotify, TagMixcloud:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the platform.
func (t Tag) DisplayName() string {
	switch t {
	case TagSpotify:
		return "Spotify"
	case TagMixcloud:
		return "Mixcloud"
	default:
		return string(t)
	}
}

// MetricKind names one tracked metric series.
type MetricKind string

// Known metric kinds.
const (
	MetricFollowers  MetricKind = "followers"
	MetricPopularity MetricKind = "popularity"
)

// MetricKinds returns the metric series the platform exposes.
// Popularity is a Spotify-only concept.
func (t Tag) MetricKinds() []MetricKind {
	switch t {
	case TagSpotify:
		return []MetricKind{MetricFollowers, MetricPopularity}
	case TagMixcloud:
		return []MetricKind{MetricFollowers}
	default:
		return nil
	}
}

// Profile is the metric state an adapter fetched for one platform identity.
// Pointer fields are nil when the platform omitted the value.
type Profile struct {
	ID         string `json:"id"`
	Followers  *int64 `json:"followers,omitempty"`
	Popularity *int64 `json:"popularity,omitempty"`
	URL        string `json:"url,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}

// Metric returns the profile's value for the given metric kind, and whether
// the platform reported one.
func (p *Profile) Metric(kind MetricKind) (int64, bool) {
	switch kind {
	case MetricFollowers:
		if p.Followers != nil {
			return *p.Followers, true
		}
	case MetricPopularity:
		if p.Popularity != nil {
			return *p.Popularity, true
		}
	}
	return 0, false
}

// Candidate is a single identity-search hit. It exists only for the duration
// of one resolution attempt and is never persisted.
type Candidate struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	URL           string `json:"url,omitempty"`
	ActivityCount int64  `json:"activity_count"`
}

// Client is the capability every platform adapter provides. Adapters own
// rate-limit handling: on a 429 they suspend for the server-indicated
// duration and retry transparently, so callers only ever see success,
// *UpstreamError, or a context error.
type Client interface {
	// Platform returns the tag this client serves.
	Platform() Tag

	// FetchProfiles fetches the profiles for the given platform identifiers.
	// The result maps identifier to profile; identifiers the platform does
	// not know are simply absent from the map.
	FetchProfiles(ctx context.Context, ids []string) (map[string]*Profile, error)

	// SearchArtists searches the platform by artist name. Returns zero or
	// more candidates in the platform's ranking order.
	SearchArtists(ctx context.Context, name string) ([]Candidate, error)
}

// UpstreamError is a non-recoverable HTTP failure from a platform API
// (non-2xx and not a rate-limit signal).
type UpstreamError struct {
	Platform Tag
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Platform, e.Status, e.Body)
}

// ErrRateLimitExceeded is returned when a request kept hitting the
// platform's rate limit past the adapter's retry budget.
type ErrRateLimitExceeded struct {
	Platform Tag
	Retries  int
}

func (e *ErrRateLimitExceeded) Error() string {
	return fmt.Sprintf("%s: still rate limited after %d retries", e.Platform, e.Retries)
}
