package sync

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/beatm8/backbeat/internal/artist"
	"github.com/beatm8/backbeat/internal/database"
	"github.com/beatm8/backbeat/internal/platform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupStore(t *testing.T) *artist.Service {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return artist.NewService(db)
}

func int64p(v int64) *int64 { return &v }

// fakeClient is an in-memory platform.Client with scripted responses.
type fakeClient struct {
	tag      platform.Tag
	profiles map[string]*platform.Profile
	searches map[string][]platform.Candidate

	fetchErr  error
	failBatch int // 1-based index of the fetch call that fails, 0 = never
	searchErr error

	fetches  [][]string
	searched []string
}

func (f *fakeClient) Platform() platform.Tag {
	if f.tag == "" {
		return platform.TagSpotify
	}
	return f.tag
}

func (f *fakeClient) FetchProfiles(_ context.Context, ids []string) (map[string]*platform.Profile, error) {
	f.fetches = append(f.fetches, ids)
	if f.failBatch == len(f.fetches) {
		return nil, f.fetchErr
	}
	out := make(map[string]*platform.Profile)
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeClient) SearchArtists(_ context.Context, name string) ([]platform.Candidate, error) {
	f.searched = append(f.searched, name)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searches[name], nil
}
