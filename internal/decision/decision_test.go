package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/aaronzipp/avalon-alone/internal/models"
)

func TestValidateTeam(t *testing.T) {
	t.Parallel()

	candidates := []string{"ana", "bo", "cy", "di", "ed"}
	tests := []struct {
		name  string
		team  []string
		valid bool
	}{
		{"ok", []string{"ana", "cy"}, true},
		{"short", []string{"ana"}, false},
		{"stranger", []string{"ana", "zed"}, false},
		{"repeat", []string{"bo", "bo"}, false},
	}
	for _, tt := range tests {
		err := ValidateTeam(tt.team, 2, candidates)
		if (err == nil) != tt.valid {
			t.Fatalf("%s: unexpected result: err=%v", tt.name, err)
		}
		if err != nil && !errors.Is(err, ErrInvalidProposal) {
			t.Fatalf("%s: error does not wrap ErrInvalidProposal: %v", tt.name, err)
		}
	}
}

func TestUnavailableNeverAnswers(t *testing.T) {
	t.Parallel()

	var p Provider = Unavailable{}
	ctx := context.Background()
	if _, err := p.ProposeTeam(ctx, TeamRequest{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.ProposeTeamVote(ctx, VoteRequest{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.ProposeMissionVote(ctx, VoteRequest{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.ProposeAssassinationTarget(ctx, AssassinationRequest{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("unexpected error: %v", err)
	}
}

type flakyProvider struct {
	Unavailable
	failures int
	calls    int
	err      error
}

func (f *flakyProvider) ProposeTeamVote(context.Context, VoteRequest) (models.TeamVote, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return models.Approve, nil
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("recovers within budget", func(t *testing.T) {
		t.Parallel()
		inner := &flakyProvider{failures: 2, err: ErrUnavailable}
		vote, err := WithRetry(inner, RetryConfig{MaxAttempts: 3}).ProposeTeamVote(context.Background(), VoteRequest{})
		if err != nil || vote != models.Approve {
			t.Fatalf("unexpected result: vote=%s err=%v", vote, err)
		}
		if inner.calls != 3 {
			t.Fatalf("unexpected calls: got=%d want=3", inner.calls)
		}
	})

	t.Run("gives up after budget", func(t *testing.T) {
		t.Parallel()
		inner := &flakyProvider{failures: 5, err: ErrUnavailable}
		_, err := WithRetry(inner, RetryConfig{MaxAttempts: 2}).ProposeTeamVote(context.Background(), VoteRequest{})
		if !errors.Is(err, ErrUnavailable) || inner.calls != 2 {
			t.Fatalf("unexpected result: calls=%d err=%v", inner.calls, err)
		}
	})

	t.Run("invalid proposals are final", func(t *testing.T) {
		t.Parallel()
		inner := &flakyProvider{failures: 5, err: ErrInvalidProposal}
		_, err := WithRetry(inner, RetryConfig{MaxAttempts: 4}).ProposeTeamVote(context.Background(), VoteRequest{})
		if !errors.Is(err, ErrInvalidProposal) || inner.calls != 1 {
			t.Fatalf("unexpected result: calls=%d err=%v", inner.calls, err)
		}
	})

	t.Run("cancelled context skips call", func(t *testing.T) {
		t.Parallel()
		inner := &flakyProvider{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := WithRetry(inner, RetryConfig{MaxAttempts: 3}).ProposeTeamVote(ctx, VoteRequest{})
		if !errors.Is(err, context.Canceled) || inner.calls != 0 {
			t.Fatalf("unexpected result: calls=%d err=%v", inner.calls, err)
		}
	})
}

func TestTracedPassesThrough(t *testing.T) {
	t.Parallel()

	inner := &flakyProvider{}
	vote, err := Traced(inner, nil).ProposeTeamVote(context.Background(), VoteRequest{})
	if err != nil || vote != models.Approve {
		t.Fatalf("unexpected result: vote=%s err=%v", vote, err)
	}
	if _, err := Traced(inner, nil).(Speaker).Speak(context.Background(), SpeechRequest{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("speak without speaker: got=%v want=%v", err, ErrUnavailable)
	}
}
