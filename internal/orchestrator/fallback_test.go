package orchestrator

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/aaronzipp/avalon-alone/internal/models"
)

func TestFallbackTeamIncludesLeader(t *testing.T) {
	t.Parallel()

	f := NewFallback(rand.New(rand.NewPCG(1, 1)))
	candidates := []string{"ana", "bo", "cy", "di", "ed"}
	for range 50 {
		team := f.Team("cy", 3, candidates)
		if len(team) != 3 || team[0] != "cy" {
			t.Fatalf("unexpected team: %v", team)
		}
		seen := map[string]bool{}
		for _, name := range team {
			if seen[name] || !slices.Contains(candidates, name) {
				t.Fatalf("invalid team: %v", team)
			}
			seen[name] = true
		}
	}
}

func TestFallbackEvilTeamVote(t *testing.T) {
	t.Parallel()

	f := NewFallback(rand.New(rand.NewPCG(2, 2)))
	roles := map[string]models.Role{
		"ana": models.RoleMerlin,
		"bo":  models.RoleAssassin,
		"cy":  models.RoleLoyalServant,
	}
	if got := f.TeamVote(models.RoleMorgana, []string{"ana", "bo"}, roles); got != models.Approve {
		t.Fatalf("evil with evil on team: got=%s want=%s", got, models.Approve)
	}
	if got := f.TeamVote(models.RoleMorgana, []string{"ana", "cy"}, roles); got != models.Reject {
		t.Fatalf("evil with no evil on team: got=%s want=%s", got, models.Reject)
	}
}

func TestFallbackGoodTeamVoteIsRandom(t *testing.T) {
	t.Parallel()

	f := NewFallback(rand.New(rand.NewPCG(3, 3)))
	counts := map[models.TeamVote]int{}
	for range 200 {
		counts[f.TeamVote(models.RolePercival, []string{"x"}, nil)]++
	}
	if counts[models.Approve] == 0 || counts[models.Reject] == 0 {
		t.Fatalf("good fallback votes are not mixed: %v", counts)
	}
}

func TestFallbackMissionVote(t *testing.T) {
	t.Parallel()

	f := NewFallback(rand.New(rand.NewPCG(4, 4)))
	fails := 0
	for range 200 {
		if f.MissionVote(models.RoleLoyalServant) != models.Success {
			t.Fatalf("good seat voted fail")
		}
		if f.MissionVote(models.RoleMinion) == models.Fail {
			fails++
		}
	}
	if fails == 0 || fails == 200 {
		t.Fatalf("evil fallback votes are not mixed: fails=%d", fails)
	}
}

func TestFallbackTarget(t *testing.T) {
	t.Parallel()

	f := NewFallback(nil)
	if got := f.Target(nil); got != "" {
		t.Fatalf("unexpected target from no candidates: %q", got)
	}
	candidates := []string{"ana", "cy"}
	for range 20 {
		if got := f.Target(candidates); !slices.Contains(candidates, got) {
			t.Fatalf("target %q not a candidate", got)
		}
	}
}
