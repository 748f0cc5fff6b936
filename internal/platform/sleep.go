package platform

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// MaxRateRetries bounds how many consecutive 429 responses an adapter will
// absorb for a single logical request before giving up. The reference
// behavior retried indefinitely; the bound keeps a misbehaving upstream from
// blocking a run forever.
const MaxRateRetries = 5

// SleepWithContext blocks for the given duration, returning early if the
// context is canceled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryAfter parses the Retry-After header of a 429 response. Falls back to
// one second when the header is missing or malformed.
func RetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return time.Second
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return time.Second
	}
	return time.Duration(secs) * time.Second
}
