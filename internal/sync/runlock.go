package sync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/beatm8/backbeat/internal/platform"
)

// ErrRunInProgress is returned when a run for the same platform already
// holds the lock.
var ErrRunInProgress = errors.New("a run for this platform is already in progress")

// RunLock is a per-platform mutual-exclusion token backed by a file lock.
// Two refresh runs against the same platform would double metric history
// entries and fight over the upstream rate budget, so at most one run per
// platform may be in flight, even across processes.
type RunLock struct {
	lock *flock.Flock
}

// AcquireRunLock takes the lock for the given platform, failing fast with
// ErrRunInProgress if another run holds it.
func AcquireRunLock(dir string, tag platform.Tag) (*RunLock, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	fl := flock.New(filepath.Join(dir, fmt.Sprintf("backbeat-%s.lock", tag)))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring run lock: %w", err)
	}
	if !locked {
		return nil, ErrRunInProgress
	}
	return &RunLock{lock: fl}, nil
}

// Release frees the lock.
func (l *RunLock) Release() error {
	return l.lock.Unlock()
}
