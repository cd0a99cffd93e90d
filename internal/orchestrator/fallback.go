package orchestrator

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/aaronzipp/avalon-alone/internal/game"
	"github.com/aaronzipp/avalon-alone/internal/models"
)

// Fallback produces a legal choice for an automated seat when the decision
// provider fails or answers with something illegal.
type Fallback struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFallback creates a policy drawing from rng. A nil rng is seeded randomly.
func NewFallback(rng *rand.Rand) *Fallback {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Fallback{rng: rng}
}

// Team returns the leader plus size-1 other candidates chosen at random.
func (f *Fallback) Team(leader string, size int, candidates []string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	team := make([]string, 0, size)
	others := make([]string, 0, len(candidates))
	if slices.Contains(candidates, leader) && size > 0 {
		team = append(team, leader)
	}
	for _, c := range candidates {
		if c != leader {
			others = append(others, c)
		}
	}
	f.rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })
	for _, c := range others {
		if len(team) == size {
			break
		}
		team = append(team, c)
	}
	return team
}

// TeamVote approves a team containing an evil seat when role is evil and
// rejects it otherwise. Good seats vote at random.
func (f *Fallback) TeamVote(role models.Role, team []string, roles map[string]models.Role) models.TeamVote {
	if game.IsEvil(role) {
		for _, name := range team {
			if game.IsEvil(roles[name]) {
				return models.Approve
			}
		}
		return models.Reject
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rng.IntN(2) == 0 {
		return models.Approve
	}
	return models.Reject
}

// MissionVote always succeeds for good seats; evil seats pick at random.
func (f *Fallback) MissionVote(role models.Role) models.MissionVote {
	if !game.IsEvil(role) {
		return models.Success
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rng.IntN(2) == 0 {
		return models.Success
	}
	return models.Fail
}

// Target picks uniformly among candidates. It returns "" when there are none.
func (f *Fallback) Target(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return candidates[f.rng.IntN(len(candidates))]
}
