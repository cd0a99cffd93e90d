// Package decision defines how automated seats are asked for choices.
//
// A Provider may be slow, may fail, and may return nonsense. Callers bound
// every call with a context deadline and validate the answer before it is
// applied to a game.
package decision

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aaronzipp/avalon-alone/internal/models"
)

var (
	// ErrUnavailable reports that no answer could be produced.
	ErrUnavailable = errors.New("decision provider unavailable")
	// ErrInvalidProposal reports an answer that is not a legal move.
	ErrInvalidProposal = errors.New("invalid proposal")
)

// TeamRequest asks the current leader for a team
type TeamRequest struct {
	View       models.PlayerView
	TeamSize   int
	Candidates []string
}

// VoteRequest asks a seat for a team or mission ballot
type VoteRequest struct {
	View models.PlayerView
	Team []string
}

// AssassinationRequest asks the assassin for a target
type AssassinationRequest struct {
	View       models.PlayerView
	Candidates []string
}

// SpeechRequest asks a seat for a line of table talk before it acts
type SpeechRequest struct {
	View    models.PlayerView
	Context string
}

// Provider supplies choices for automated seats.
type Provider interface {
	ProposeTeam(ctx context.Context, req TeamRequest) ([]string, error)
	ProposeTeamVote(ctx context.Context, req VoteRequest) (models.TeamVote, error)
	ProposeMissionVote(ctx context.Context, req VoteRequest) (models.MissionVote, error)
	ProposeAssassinationTarget(ctx context.Context, req AssassinationRequest) (string, error)
}

// Speaker is implemented by providers that can also produce table talk.
type Speaker interface {
	Speak(ctx context.Context, req SpeechRequest) (string, error)
}

// ValidateTeam checks that team has exactly size distinct members drawn from candidates.
func ValidateTeam(team []string, size int, candidates []string) error {
	if len(team) != size {
		return fmt.Errorf("%w: team has %d players, need %d", ErrInvalidProposal, len(team), size)
	}
	seen := make(map[string]bool, len(team))
	for _, name := range team {
		if !slices.Contains(candidates, name) {
			return fmt.Errorf("%w: %q is not a candidate", ErrInvalidProposal, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: %q listed twice", ErrInvalidProposal, name)
		}
		seen[name] = true
	}
	return nil
}

// ValidateTarget checks that target is one of candidates.
func ValidateTarget(target string, candidates []string) error {
	if !slices.Contains(candidates, target) {
		return fmt.Errorf("%w: %q is not a candidate", ErrInvalidProposal, target)
	}
	return nil
}

// Unavailable is a Provider that never answers. Every automated seat then
// plays the fallback policy.
type Unavailable struct{}

func (Unavailable) ProposeTeam(context.Context, TeamRequest) ([]string, error) {
	return nil, ErrUnavailable
}

func (Unavailable) ProposeTeamVote(context.Context, VoteRequest) (models.TeamVote, error) {
	return "", ErrUnavailable
}

func (Unavailable) ProposeMissionVote(context.Context, VoteRequest) (models.MissionVote, error) {
	return "", ErrUnavailable
}

func (Unavailable) ProposeAssassinationTarget(context.Context, AssassinationRequest) (string, error) {
	return "", ErrUnavailable
}
