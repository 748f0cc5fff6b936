package platform

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Default client-side rate limits per platform (requests per second).
// These pace outgoing requests; server 429 handling is separate and lives
// in each adapter.
var defaultRateLimits = map[Tag]rate.Limit{
	TagSpotify:  5,
	TagMixcloud: 2,
}

// RateLimiterMap holds one rate.Limiter per platform, created once at startup.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[Tag]*rate.Limiter
}

// NewRateLimiterMap creates all platform rate limiters.
func NewRateLimiterMap() *RateLimiterMap {
	m := &RateLimiterMap{
		limiters: make(map[Tag]*rate.Limiter, len(defaultRateLimits)),
	}
	for tag, limit := range defaultRateLimits {
		m.limiters[tag] = rate.NewLimiter(limit, 1)
	}
	return m
}

// Wait blocks until the rate limiter for the given platform allows a request,
// or the context is canceled.
func (m *RateLimiterMap) Wait(ctx context.Context, tag Tag) error {
	m.mu.RLock()
	limiter, ok := m.limiters[tag]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
