package game

import (
	"github.com/aaronzipp/avalon-alone/internal/models"
)

// TeamTally represents the outcome of a completed team vote
type TeamTally struct {
	Approvals  int
	Rejections int
	Approved   bool
}

// CountTeamVotes tallies team votes. A team is approved only by a strict
// majority of the whole table, so ties reject.
func CountTeamVotes(votes map[string]models.TeamVote, totalPlayers int) TeamTally {
	var t TeamTally
	for _, v := range votes {
		if v == models.Approve {
			t.Approvals++
		} else {
			t.Rejections++
		}
	}
	t.Approved = t.Approvals > totalPlayers/2
	return t
}

// MissionTally represents the outcome of a completed mission vote
type MissionTally struct {
	Successes int
	Fails     int
	Success   bool
}

// CountMissionVotes tallies mission votes against the slot's fail threshold.
func CountMissionVotes(votes map[string]models.MissionVote, failsNeeded int) MissionTally {
	var t MissionTally
	for _, v := range votes {
		if v == models.Fail {
			t.Fails++
		} else {
			t.Successes++
		}
	}
	t.Success = t.Fails < failsNeeded
	return t
}

// CountResults returns how many recorded missions succeeded and failed.
func CountResults(results []models.MissionResult) (successes, failures int) {
	for _, r := range results {
		if r.Success {
			successes++
		} else {
			failures++
		}
	}
	return successes, failures
}

// NextSeat returns the seat after seat, wrapping around the table.
func NextSeat(seat, totalPlayers int) int {
	return (seat + 1) % totalPlayers
}
