package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/beatm8/backbeat/internal/artist"
	"github.com/beatm8/backbeat/internal/platform"
)

// BatchResult is the outcome of fetching one chunk of bindings. Either
// Profiles or Err is set; a failed chunk never aborts the remaining chunks.
type BatchResult struct {
	Chunk    []artist.Binding
	Profiles map[string]*platform.Profile
	Err      error
}

// Fetcher drives a selection of bindings through a platform client in
// bounded batches, with a fixed pause after each batch. The pause is a
// deliberate simplification: the upstream rate budget is the bottleneck, so
// batches run strictly sequentially.
type Fetcher struct {
	client platform.Client
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

// NewFetcher creates a batch fetcher for the given platform client.
func NewFetcher(client platform.Client, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		logger: logger.With(slog.String("component", "fetcher")),
		sleep:  platform.SleepWithContext,
	}
}

// Run partitions bindings into chunks of at most batchSize and fetches each
// chunk in sequence, pausing delay after every batch. The only error Run
// itself returns is context cancellation; per-chunk upstream failures are
// recorded in the corresponding BatchResult.
func (f *Fetcher) Run(ctx context.Context, bindings []artist.Binding, batchSize int, delay time.Duration) ([]BatchResult, error) {
	chunks := chunkBindings(bindings, batchSize)
	results := make([]BatchResult, 0, len(chunks))

	for i, chunk := range chunks {
		ids := make([]string, 0, len(chunk))
		for _, b := range chunk {
			ids = append(ids, b.PlatformID)
		}

		f.logger.Info("fetching batch",
			slog.Int("batch", i+1),
			slog.Int("batches", len(chunks)),
			slog.Int("size", len(chunk)))

		profiles, err := f.client.FetchProfiles(ctx, ids)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			f.logger.Error("batch fetch failed", slog.Int("batch", i+1), slog.Any("error", err))
			results = append(results, BatchResult{Chunk: chunk, Err: err})
		} else {
			results = append(results, BatchResult{Chunk: chunk, Profiles: profiles})
		}

		if err := f.sleep(ctx, delay); err != nil {
			return results, err
		}
	}

	return results, nil
}

// Match returns the fetched profile belonging to the given binding, matching
// by exact platform-identifier equality within the chunk.
func (r *BatchResult) Match(b artist.Binding) *platform.Profile {
	if r.Profiles == nil {
		return nil
	}
	return r.Profiles[b.PlatformID]
}

// chunkBindings partitions bindings into consecutive chunks of at most size.
func chunkBindings(bindings []artist.Binding, size int) [][]artist.Binding {
	if len(bindings) == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	var chunks [][]artist.Binding
	for start := 0; start < len(bindings); start += size {
		end := start + size
		if end > len(bindings) {
			end = len(bindings)
		}
		chunks = append(chunks, bindings[start:end])
	}
	return chunks
}
