package decision

import (
	"context"
	"errors"

	"github.com/aaronzipp/avalon-alone/internal/models"
)

// RetryConfig controls retries of failed provider calls.
type RetryConfig struct {
	MaxAttempts int
	ShouldRetry func(error) bool
}

// WithRetry wraps a provider with deterministic, error-only retries. Invalid
// proposals and context errors are not retried by default.
func WithRetry(next Provider, cfg RetryConfig) Provider {
	if next == nil {
		return nil
	}
	return &retrying{next: next, cfg: cfg}
}

type retrying struct {
	next Provider
	cfg  RetryConfig
}

func (r *retrying) ProposeTeam(ctx context.Context, req TeamRequest) ([]string, error) {
	return retry(ctx, r.cfg, func() ([]string, error) { return r.next.ProposeTeam(ctx, req) })
}

func (r *retrying) ProposeTeamVote(ctx context.Context, req VoteRequest) (models.TeamVote, error) {
	return retry(ctx, r.cfg, func() (models.TeamVote, error) { return r.next.ProposeTeamVote(ctx, req) })
}

func (r *retrying) ProposeMissionVote(ctx context.Context, req VoteRequest) (models.MissionVote, error) {
	return retry(ctx, r.cfg, func() (models.MissionVote, error) { return r.next.ProposeMissionVote(ctx, req) })
}

func (r *retrying) ProposeAssassinationTarget(ctx context.Context, req AssassinationRequest) (string, error) {
	return retry(ctx, r.cfg, func() (string, error) { return r.next.ProposeAssassinationTarget(ctx, req) })
}

func (r *retrying) Speak(ctx context.Context, req SpeechRequest) (string, error) {
	speaker, ok := r.next.(Speaker)
	if !ok {
		return "", ErrUnavailable
	}
	return retry(ctx, r.cfg, func() (string, error) { return speaker.Speak(ctx, req) })
}

func retry[T any](ctx context.Context, cfg RetryConfig, call func() (T, error)) (T, error) {
	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}

	attempts := normalizedAttempts(cfg.MaxAttempts)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := call()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == attempts || !shouldRetry(ctx, cfg, err) {
			break
		}
	}
	return zero, lastErr
}

func normalizedAttempts(maxAttempts int) int {
	if maxAttempts < 1 {
		return 1
	}
	return maxAttempts
}

func shouldRetry(ctx context.Context, cfg RetryConfig, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if cfg.ShouldRetry == nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		return !errors.Is(err, ErrInvalidProposal)
	}
	return cfg.ShouldRetry(err)
}
