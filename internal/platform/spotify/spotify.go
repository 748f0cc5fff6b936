// Package spotify implements the platform.Client capability against the
// Spotify Web API using the client-credentials grant.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/beatm8/backbeat/internal/platform"
)

const (
	defaultBaseURL  = "https://api.spotify.com"
	defaultTokenURL = "https://accounts.spotify.com/api/token"

	// MaxBatchIDs is the Spotify /v1/artists batch limit.
	MaxBatchIDs = 50
)

// Adapter implements platform.Client for Spotify. Authentication uses the
// client-credentials flow; the oauth2 transport refreshes tokens as needed.
type Adapter struct {
	client  *http.Client
	limiter *platform.RateLimiterMap
	logger  *slog.Logger
	baseURL string
	sleep   func(context.Context, time.Duration) error
}

// New creates a Spotify adapter with the default API and token endpoints.
func New(clientID, clientSecret string, limiter *platform.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(clientID, clientSecret, limiter, logger, defaultBaseURL, defaultTokenURL)
}

// NewWithBaseURL creates a Spotify adapter with custom endpoints (for testing).
func NewWithBaseURL(clientID, clientSecret string, limiter *platform.RateLimiterMap, logger *slog.Logger, baseURL, tokenURL string) *Adapter {
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	client := cc.Client(context.Background())
	client.Timeout = 15 * time.Second

	return &Adapter{
		client:  client,
		limiter: limiter,
		logger:  logger.With(slog.String("platform", "spotify")),
		baseURL: strings.TrimRight(baseURL, "/"),
		sleep:   platform.SleepWithContext,
	}
}

// Platform returns the tag this adapter serves.
func (a *Adapter) Platform() platform.Tag { return platform.TagSpotify }

// FetchProfiles fetches up to MaxBatchIDs artists in a single API call.
func (a *Adapter) FetchProfiles(ctx context.Context, ids []string) (map[string]*platform.Profile, error) {
	if len(ids) == 0 {
		return map[string]*platform.Profile{}, nil
	}
	if len(ids) > MaxBatchIDs {
		return nil, fmt.Errorf("spotify: batch of %d exceeds limit %d", len(ids), MaxBatchIDs)
	}

	params := url.Values{"ids": {strings.Join(ids, ",")}}
	body, err := a.doRequest(ctx, a.baseURL+"/v1/artists?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp artistsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing artists response: %w", err)
	}

	profiles := make(map[string]*platform.Profile, len(resp.Artists))
	for _, art := range resp.Artists {
		if art == nil {
			// Spotify returns null for unknown IDs.
			continue
		}
		profiles[art.ID] = profileFromArtist(art)
	}

	a.logger.Debug("batch fetch completed",
		slog.Int("requested", len(ids)),
		slog.Int("returned", len(profiles)))

	return profiles, nil
}

// SearchArtists searches Spotify for artists matching the given name.
// Follower totals stand in as the activity signal, since Spotify does not
// expose a published-item count on search results.
func (a *Adapter) SearchArtists(ctx context.Context, name string) ([]platform.Candidate, error) {
	if name == "" {
		return nil, nil
	}

	params := url.Values{
		"q":     {name},
		"type":  {"artist"},
		"limit": {"10"},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/v1/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	candidates := make([]platform.Candidate, 0, len(resp.Artists.Items))
	for _, art := range resp.Artists.Items {
		c := platform.Candidate{
			ID:   art.ID,
			Name: art.Name,
			URL:  art.ExternalURLs["spotify"],
		}
		if art.Followers != nil {
			c.ActivityCount = art.Followers.Total
		}
		candidates = append(candidates, c)
	}

	a.logger.Debug("artist search completed",
		slog.String("query", name),
		slog.Int("results", len(candidates)))

	return candidates, nil
}

// doRequest executes a GET request and returns the response body. A 429 is
// absorbed by suspending for the server-indicated Retry-After and repeating
// the same request, up to platform.MaxRateRetries times.
func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if err := a.limiter.Wait(ctx, platform.TagSpotify); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("spotify request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			delay := platform.RetryAfter(resp)
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()

			if attempt >= platform.MaxRateRetries {
				return nil, &platform.ErrRateLimitExceeded{Platform: platform.TagSpotify, Retries: attempt}
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
				Platform: platform.TagSpotify,
				Status:   resp.StatusCode,
				Body:     strings.TrimSpace(string(body)),
			}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
		_ = resp.Body.Close()
		return body, err
	}
}

// profileFromArtist converts a Spotify artist object into the common Profile.
func profileFromArtist(art *artistObject) *platform.Profile {
	p := &platform.Profile{
		ID:         art.ID,
		Popularity: art.Popularity,
		URL:        art.ExternalURLs["spotify"],
	}
	if art.Followers != nil {
		total := art.Followers.Total
		p.Followers = &total
	}
	if len(art.Images) > 0 {
		p.ImageURL = art.Images[0].URL
	}
	return p
}
