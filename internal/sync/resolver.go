package sync

import (
	"context"
	"log/slog"

	"github.com/beatm8/backbeat/internal/platform"
)

// Outcome classifies one identity-resolution attempt.
type Outcome string

// Resolution outcomes. Exactly one is produced per attempt, determined
// solely by the number of candidates with activity.
const (
	OutcomeResolved   Outcome = "resolved"
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeAmbiguous  Outcome = "ambiguous"
)

// Unresolved reasons.
const (
	ReasonNoResults    = "no results"
	ReasonNoQualifying = "no qualifying candidates"
)

// Resolution is the tagged result of resolving one artist name.
type Resolution struct {
	Outcome    Outcome
	PlatformID string               // set when Outcome is OutcomeResolved
	Reason     string               // set when Outcome is OutcomeUnresolved
	Candidates []platform.Candidate // set when Outcome is OutcomeAmbiguous
}

// Resolver turns a free-text artist name into a platform identifier via the
// platform's search API. A wrong automatic match is worse than an
// unresolved artist, so anything short of exactly one plausible candidate
// is handed to a human instead of guessed at.
type Resolver struct {
	client platform.Client
	logger *slog.Logger
}

// NewResolver creates an identity resolver for the given platform client.
func NewResolver(client platform.Client, logger *slog.Logger) *Resolver {
	return &Resolver{
		client: client,
		logger: logger.With(slog.String("component", "resolver")),
	}
}

// Resolve searches the platform for name, keeps candidates with an activity
// count above zero, and classifies by the surviving count: zero is
// unresolved, one is resolved, more is ambiguous. The returned error is
// non-nil only for search failures, which carry no classification.
func (r *Resolver) Resolve(ctx context.Context, name string) (Resolution, error) {
	candidates, err := r.client.SearchArtists(ctx, name)
	if err != nil {
		return Resolution{}, err
	}

	if len(candidates) == 0 {
		r.logger.Debug("no search results", slog.String("name", name))
		return Resolution{Outcome: OutcomeUnresolved, Reason: ReasonNoResults}, nil
	}

	// A platform presence with no published content is not a usable identity.
	qualified := candidates[:0:0]
	for _, c := range candidates {
		if c.ActivityCount > 0 {
			qualified = append(qualified, c)
		}
	}

	switch len(qualified) {
	case 0:
		r.logger.Debug("no qualifying candidates", slog.String("name", name))
		return Resolution{Outcome: OutcomeUnresolved, Reason: ReasonNoQualifying}, nil
	case 1:
		r.logger.Info("identity resolved",
			slog.String("name", name),
			slog.String("platform_id", qualified[0].ID))
		return Resolution{Outcome: OutcomeResolved, PlatformID: qualified[0].ID}, nil
	default:
		r.logger.Info("ambiguous identity",
			slog.String("name", name),
			slog.Int("candidates", len(qualified)))
		return Resolution{Outcome: OutcomeAmbiguous, Candidates: qualified}, nil
	}
}
