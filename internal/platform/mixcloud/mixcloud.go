// Package mixcloud implements the platform.Client capability against the
// public Mixcloud API. No authentication is required.
package mixcloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beatm8/backbeat/internal/platform"
)

const defaultBaseURL = "https://api.mixcloud.com"

// Adapter implements platform.Client for Mixcloud. The API has no batch
// profile endpoint, so FetchProfiles fans a batch out into sequential
// single-profile requests under the shared rate limiter.
type Adapter struct {
	client  *http.Client
	limiter *platform.RateLimiterMap
	logger  *slog.Logger
	baseURL string
	sleep   func(context.Context, time.Duration) error
}

// New creates a Mixcloud adapter with the default base URL.
func New(limiter *platform.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Mixcloud adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *platform.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("platform", "mixcloud")),
		baseURL: strings.TrimRight(baseURL, "/"),
		sleep:   platform.SleepWithContext,
	}
}

// Platform returns the tag this adapter serves.
func (a *Adapter) Platform() platform.Tag { return platform.TagMixcloud }

// FetchProfiles fetches each username's profile in turn. Usernames Mixcloud
// does not know (404) are left out of the result rather than failing the
// whole batch.
func (a *Adapter) FetchProfiles(ctx context.Context, ids []string) (map[string]*platform.Profile, error) {
	profiles := make(map[string]*platform.Profile, len(ids))

	for _, id := range ids {
		if id == "" {
			continue
		}
		body, err := a.doRequest(ctx, a.baseURL+"/"+url.PathEscape(id))
		if err != nil {
			var upstream *platform.UpstreamError
			if errors.As(err, &upstream) && upstream.Status == http.StatusNotFound {
				a.logger.Debug("profile not found", slog.String("username", id))
				continue
			}
			return nil, err
		}

		var user userResult
		if err := json.Unmarshal(body, &user); err != nil {
			return nil, fmt.Errorf("parsing profile response: %w", err)
		}
		profiles[id] = profileFromUser(id, &user)
	}

	a.logger.Debug("batch fetch completed",
		slog.Int("requested", len(ids)),
		slog.Int("returned", len(profiles)))

	return profiles, nil
}

// SearchArtists searches Mixcloud users matching the given name. The user's
// cloudcast count is the activity signal: a profile that never uploaded a
// cloudcast is not a usable artist identity.
func (a *Adapter) SearchArtists(ctx context.Context, name string) ([]platform.Candidate, error) {
	if name == "" {
		return nil, nil
	}

	params := url.Values{
		"q":    {name},
		"type": {"user"},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/search/?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	candidates := make([]platform.Candidate, 0, len(resp.Data))
	for _, user := range resp.Data {
		candidates = append(candidates, platform.Candidate{
			ID:            user.Username,
			Name:          user.Name,
			URL:           user.URL,
			ActivityCount: user.CloudcastCount,
		})
	}

	a.logger.Debug("artist search completed",
		slog.String("query", name),
		slog.Int("results", len(candidates)))

	return candidates, nil
}

// doRequest executes a GET request and returns the response body, absorbing
// 429 responses via Retry-After suspension up to platform.MaxRateRetries.
func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if err := a.limiter.Wait(ctx, platform.TagMixcloud); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("mixcloud request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			delay := platform.RetryAfter(resp)
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()

			if attempt >= platform.MaxRateRetries {
				return nil, &platform.ErrRateLimitExceeded{Platform: platform.TagMixcloud, Retries: attempt}
			}
			a.logger.Warn("rate limited", slog.Duration("retry_after", delay))
			if err := a.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
			_ = resp.Body.Close()
			return nil, &platform.UpstreamError{
				Platform: platform.TagMixcloud,
				Status:   resp.StatusCode,
				Body:     strings.TrimSpace(string(body)),
			}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
		_ = resp.Body.Close()
		return body, err
	}
}

// profileFromUser converts a Mixcloud user into the common Profile.
// Mixcloud has no popularity metric.
func profileFromUser(id string, user *userResult) *platform.Profile {
	return &platform.Profile{
		ID:        id,
		Followers: user.FollowerCount,
		URL:       user.URL,
		ImageURL:  user.Pictures.Large,
	}
}
