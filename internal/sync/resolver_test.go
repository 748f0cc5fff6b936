package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/beatm8/backbeat/internal/platform"
)

func TestResolveNoResults(t *testing.T) {
	client := &fakeClient{tag: platform.TagMixcloud, searches: map[string][]platform.Candidate{}}
	r := NewResolver(client, testLogger())

	res, err := r.Resolve(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeUnresolved || res.Reason != ReasonNoResults {
		t.Errorf("expected unresolved/no results, got %s/%q", res.Outcome, res.Reason)
	}
}

func TestResolveNoQualifyingCandidates(t *testing.T) {
	client := &fakeClient{
		tag: platform.TagMixcloud,
		searches: map[string][]platform.Candidate{
			"ghost": {
				{ID: "ghost1", Name: "ghost", ActivityCount: 0},
				{ID: "ghost2", Name: "ghost official", ActivityCount: 0},
			},
		},
	}
	r := NewResolver(client, testLogger())

	res, err := r.Resolve(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeUnresolved || res.Reason != ReasonNoQualifying {
		t.Errorf("expected unresolved/no qualifying, got %s/%q", res.Outcome, res.Reason)
	}
}

func TestResolveSingleActiveCandidate(t *testing.T) {
	client := &fakeClient{
		tag: platform.TagMixcloud,
		searches: map[string][]platform.Candidate{
			"helena hauff": {
				{ID: "impostor", Name: "helena hauff fan", ActivityCount: 0},
				{ID: "helenahauff", Name: "Helena Hauff", ActivityCount: 3},
			},
		},
	}
	r := NewResolver(client, testLogger())

	res, err := r.Resolve(context.Background(), "helena hauff")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeResolved {
		t.Fatalf("expected resolved, got %s", res.Outcome)
	}
	if res.PlatformID != "helenahauff" {
		t.Errorf("expected the active candidate to win, got %q", res.PlatformID)
	}
}

func TestResolveAmbiguous(t *testing.T) {
	client := &fakeClient{
		tag: platform.TagMixcloud,
		searches: map[string][]platform.Candidate{
			"dj shadow": {
				{ID: "djshadow", Name: "DJ Shadow", ActivityCount: 5},
				{ID: "djshadowofficial", Name: "DJ Shadow Official", ActivityCount: 7},
			},
		},
	}
	r := NewResolver(client, testLogger())

	res, err := r.Resolve(context.Background(), "dj shadow")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeAmbiguous {
		t.Fatalf("expected ambiguous, got %s", res.Outcome)
	}
	if len(res.Candidates) != 2 {
		t.Errorf("expected both active candidates kept for review, got %d", len(res.Candidates))
	}
}

func TestResolveSearchFailure(t *testing.T) {
	client := &fakeClient{tag: platform.TagMixcloud, searchErr: errors.New("upstream unavailable")}
	r := NewResolver(client, testLogger())

	res, err := r.Resolve(context.Background(), "anyone")
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Outcome != "" {
		t.Errorf("a failed search must carry no classification, got %s", res.Outcome)
	}
}
