package mixcloud

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
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

func newTestServer(t *testing.T, rateLimited *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rateLimited != nil && rateLimited.Add(-1) >= 0 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search/":
			if r.URL.Query().Get("q") == "no results" {
				w.Write([]byte(`{"data":[],"paging":{}}`)) //nolint:errcheck
				return
			}
			w.Write(loadFixture(t, "search_users.json")) //nolint:errcheck

		case "/NTSRadio":
			w.Write(loadFixture(t, "user_ntsradio.json")) //nolint:errcheck

		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"type":"ResourceNotFoundException"}}`)) //nolint:errcheck
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	limiter := platform.NewRateLimiterMap()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	a := NewWithBaseURL(limiter, logger, baseURL)
	a.sleep = func(context.Context, time.Duration) error { return nil }
	return a
}

func TestPlatform(t *testing.T) {
	a := newTestAdapter(t, "http://localhost")
	if a.Platform() != platform.TagMixcloud {
		t.Errorf("expected mixcloud, got %q", a.Platform())
	}
}

func TestFetchProfiles(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	profiles, err := a.FetchProfiles(context.Background(), []string{"NTSRadio", "deleted-user"})
	if err != nil {
		t.Fatalf("FetchProfiles: %v", err)
	}

	// Unknown usernames answer 404 and are simply left out.
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}

	nts := profiles["NTSRadio"]
	if nts == nil {
		t.Fatal("expected NTSRadio profile")
	}
	if nts.Followers == nil || *nts.Followers != 124057 {
		t.Errorf("unexpected followers: %v", nts.Followers)
	}
	if nts.Popularity != nil {
		t.Errorf("mixcloud has no popularity metric, got %v", nts.Popularity)
	}
	if nts.URL != "https://www.mixcloud.com/NTSRadio/" {
		t.Errorf("unexpected url: %q", nts.URL)
	}
	if nts.ImageURL == "" {
		t.Error("expected the large picture to be picked")
	}
}

func TestFetchProfilesSkipsEmptyIDs(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	profiles, err := a.FetchProfiles(context.Background(), []string{""})
	if err != nil {
		t.Fatalf("FetchProfiles: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("expected empty map, got %d", len(profiles))
	}
}

func TestSearchArtists(t *testing.T) {
	srv := newTestServer(t, nil)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	candidates, err := a.SearchArtists(context.Background(), "nts")
	if err != nil {
		t.Fatalf("SearchArtists: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].ID != "NTSRadio" {
		t.Errorf("unexpected first candidate: %q", candidates[0].ID)
	}
	if candidates[0].ActivityCount != 10432 {
		t.Errorf("expected cloudcast count as activity, got %d", candidates[0].ActivityCount)
	}
	if candidates[1].ActivityCount != 0 {
		t.Errorf("expected zero activity for user without cloudcasts, got %d", candidates[1].ActivityCount)
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
	limited.Store(1)

	srv := newTestServer(t, &limited)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	var pauses []time.Duration
	a.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	profiles, err := a.FetchProfiles(context.Background(), []string{"NTSRadio"})
	if err != nil {
		t.Fatalf("FetchProfiles after 429: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatal("expected profile after retry")
	}
	if len(pauses) != 1 || pauses[0] != time.Second {
		t.Errorf("expected one 1s suspension from Retry-After, got %v", pauses)
	}
}

func TestRateLimitGivesUp(t *testing.T) {
	var limited atomic.Int32
	limited.Store(int32(platform.MaxRateRetries) + 5)

	srv := newTestServer(t, &limited)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.FetchProfiles(context.Background(), []string{"NTSRadio"})
	var rateErr *platform.ErrRateLimitExceeded
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
}
