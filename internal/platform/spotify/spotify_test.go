package spotify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/beatm8/backbeat/internal/platform"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

// newTestServer serves the token endpoint plus the artist endpoints.
// rateLimited requests (counted down atomically) answer 429 first.
func newTestServer(t *testing.T, rateLimited *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/token" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`)) //nolint:errcheck
			return
		}

		if rateLimited != nil && rateLimited.Add(-1) >= 0 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/v1/artists":
			if r.URL.Query().Get("ids") == "" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Write(loadFixture(t, "artists_batch.json")) //nolint:errcheck

		case r.URL.Path == "/v1/search":
			if r.URL.Query().Get("q") == "no results" {
				w.Write([]byte(`{"artists":{"items":[],"total":0}}`)) //nolint:errcheck
				return
			}
			w.Write(loadFixture(t, "search_fourtet.json")) //nolint:errcheck

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	limiter := platform.NewRateLimiterMap()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	a := NewWithBaseURL("test-id", "test-secret", limiter, logger, baseURL, baseURL+"/api/token")
	a.sleep = func(context.Context, time.Duration) error { return nil }
	return a
}

func TestPlatform(t *testing.T) {
	a := newTestAdapter(t, "http://localhost")
	if a.Platform() != platform.TagSpotify {
		t.Errorf("expected spotify, got %q", a.Platform())
	}
}

func TestFetchProfiles(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	profiles, err := a.FetchProfiles(context.Background(), []string{"1h6Cn3P4NGzXbaXidqURXs", "unknown-id", "4aEnNH9PuU1HF3TsZTru54"})
	if err != nil {
		t.Fatalf("FetchProfiles: %v", err)
	}

	// The null entry for the unknown ID is dropped, not mapped.
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if _, ok := profiles["unknown-id"]; ok {
		t.Error("unknown ID must not appear in the result")
	}

	fourTet := profiles["1h6Cn3P4NGzXbaXidqURXs"]
	if fourTet == nil {
		t.Fatal("expected Four Tet profile")
	}
	if fourTet.Followers == nil || *fourTet.Followers != 1204563 {
		t.Errorf("unexpected followers: %v", fourTet.Followers)
	}
	if fourTet.Popularity == nil || *fourTet.Popularity != 67 {
		t.Errorf("unexpected popularity: %v", fourTet.Popularity)
	}
	if !strings.Contains(fourTet.URL, "open.spotify.com") {
		t.Errorf("unexpected url: %q", fourTet.URL)
	}
	if fourTet.ImageURL == "" {
		t.Error("expected the first image to be picked")
	}

	caribou := profiles["4aEnNH9PuU1HF3TsZTru54"]
	if caribou == nil {
		t.Fatal("expected Caribou profile")
	}
	if caribou.ImageURL != "" {
		t.Errorf("expected empty image url for artist without images, got %q", caribou.ImageURL)
	}
}

func TestFetchProfilesEmptyBatch(t *testing.T) {
	a := newTestAdapter(t, "http://localhost")
	profiles, err := a.FetchProfiles(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchProfiles: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("expected empty map, got %d", len(profiles))
	}
}

func TestFetchProfilesOversizedBatch(t *testing.T) {
	a := newTestAdapter(t, "http://localhost")
	ids := make([]string, MaxBatchIDs+1)
	for i := range ids {
		ids[i] = "id"
	}
	if _, err := a.FetchProfiles(context.Background(), ids); err == nil {
		t.Fatal("expected error for batch above the API limit")
	}
}

func TestSearchArtists(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	candidates, err := a.SearchArtists(context.Background(), "four tet")
	if err != nil {
		t.Fatalf("SearchArtists: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].ID != "1h6Cn3P4NGzXbaXidqURXs" {
		t.Errorf("unexpected first candidate: %q", candidates[0].ID)
	}
	if candidates[0].ActivityCount != 1204563 {
		t.Errorf("expected followers as activity count, got %d", candidates[0].ActivityCount)
	}
	if candidates[1].ActivityCount != 0 {
		t.Errorf("expected zero activity for the zero-follower result, got %d", candidates[1].ActivityCount)
	}
}

func TestSearchArtistsNoResults(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	candidates, err := a.SearchArtists(context.Background(), "no results")
	if err != nil {
		t.Fatalf("SearchArtists: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(candidates))
	}
}

func TestRateLimitRetry(t *testing.T) {
	var limited atomic.Int32
	limited.Store(1) // first artist request answers 429, then 200

	srv := newTestServer(t, &limited)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	var pauses []time.Duration
	a.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	profiles, err := a.FetchProfiles(context.Background(), []string{"1h6Cn3P4NGzXbaXidqURXs"})
	if err != nil {
		t.Fatalf("FetchProfiles after 429: %v", err)
	}
	if len(profiles) == 0 {
		t.Fatal("expected profiles after retry")
	}
	if len(pauses) != 1 || pauses[0] != 2*time.Second {
		t.Errorf("expected one 2s suspension from Retry-After, got %v", pauses)
	}
}

func TestRateLimitGivesUp(t *testing.T) {
	var limited atomic.Int32
	limited.Store(int32(platform.MaxRateRetries) + 5) // never stops answering 429

	srv := newTestServer(t, &limited)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.FetchProfiles(context.Background(), []string{"1h6Cn3P4NGzXbaXidqURXs"})
	var rateErr *platform.ErrRateLimitExceeded
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
	if rateErr.Retries != platform.MaxRateRetries {
		t.Errorf("expected %d retries, got %d", platform.MaxRateRetries, rateErr.Retries)
	}
}

func TestUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/token" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`)) //nolint:errcheck
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"status":500,"message":"server error"}}`)) //nolint:errcheck
	}))
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.FetchProfiles(context.Background(), []string{"any"})
	var upstream *platform.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", upstream.Status)
	}
}
