// Package review surfaces unresolved and ambiguous resolution outcomes for
// human follow-up: JSON dump files plus console tables.
package review

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/beatm8/backbeat/internal/sync"
)

// Sink writes review sets to JSON files under a directory, one pair of
// files per platform, overwritten on every run.
type Sink struct {
	dir    string
	logger *slog.Logger
}

// NewSink creates a review sink writing into dir.
func NewSink(dir string, logger *slog.Logger) *Sink {
	return &Sink{
		dir:    dir,
		logger: logger.With(slog.String("component", "review")),
	}
}

// Write dumps the review set to <platform>_unresolved.json and
// <platform>_ambiguous.json and returns both paths.
func (s *Sink) Write(set *sync.ReviewSet) (unresolvedPath, ambiguousPath string, err error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", "", fmt.Errorf("creating review directory: %w", err)
	}

	unresolvedPath = filepath.Join(s.dir, fmt.Sprintf("%s_unresolved.json", set.Platform))
	ambiguousPath = filepath.Join(s.dir, fmt.Sprintf("%s_ambiguous.json", set.Platform))

	if err := writeJSON(unresolvedPath, emptySlice(set.Unresolved)); err != nil {
		return "", "", err
	}
	if err := writeJSON(ambiguousPath, emptySlice(set.Ambiguous)); err != nil {
		return "", "", err
	}

	s.logger.Info("review files written",
		slog.String("platform", string(set.Platform)),
		slog.Int("unresolved", len(set.Unresolved)),
		slog.Int("ambiguous", len(set.Ambiguous)))

	return unresolvedPath, ambiguousPath, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// emptySlice substitutes an empty slice for nil so the dumps contain []
// rather than null.
func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
