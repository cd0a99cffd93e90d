package models

import "time"

// TeamVote is a ballot on a proposed team
type TeamVote string

const (
	Approve TeamVote = "approve"
	Reject  TeamVote = "reject"
)

// Valid reports whether v is approve or reject.
func (v TeamVote) Valid() bool {
	return v == Approve || v == Reject
}

// MissionVote is a ballot cast by a team member on a mission
type MissionVote string

const (
	Success MissionVote = "success"
	Fail    MissionVote = "fail"
)

// Valid reports whether v is success or fail.
func (v MissionVote) Valid() bool {
	return v == Success || v == Fail
}

// MissionSlot holds the sizing for one of the five missions
type MissionSlot struct {
	Index       int `json:"index"`
	TeamSize    int `json:"team_size"`
	FailsNeeded int `json:"fails_needed"`
}

// MissionResult is appended once every team member has voted on a mission
type MissionResult struct {
	Mission      int      `json:"mission"`
	Team         []string `json:"team"`
	Success      bool     `json:"success"`
	FailCount    int      `json:"fail_count"`
	SuccessCount int      `json:"success_count"`
}

// TeamVoteRecord captures a completed team vote. Individual ballots are
// public once everyone has voted.
type TeamVoteRecord struct {
	Mission  int                 `json:"mission"`
	Attempt  int                 `json:"attempt"`
	Leader   string              `json:"leader"`
	Team     []string            `json:"team"`
	Votes    map[string]TeamVote `json:"votes"`
	Approved bool                `json:"approved"`
}

// Message is a line of table talk
type Message struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	Phase   Phase     `json:"phase"`
	At      time.Time `json:"at"`
}

// Snapshot is the public, read-only view of a game. Roles are only filled in
// once the game is over.
type Snapshot struct {
	Phase          Phase            `json:"phase"`
	Players        []Player         `json:"players"`
	Mission        int              `json:"current_mission"`
	Slot           MissionSlot      `json:"mission_slot"`
	Plan           []MissionSlot    `json:"mission_plan"`
	LeaderIndex    int              `json:"current_leader_index"`
	Leader         string           `json:"leader"`
	Team           []string         `json:"current_team"`
	TeamVoters     []string         `json:"team_voters"`
	MissionVoters  []string         `json:"mission_voters"`
	Rejections     int              `json:"rejection_count"`
	Results        []MissionResult  `json:"mission_results"`
	TeamVotes      []TeamVoteRecord `json:"team_vote_history"`
	Successes      int              `json:"successes"`
	Failures       int              `json:"failures"`
	Winner         Alignment        `json:"winner,omitempty"`
	EndReason      EndReason        `json:"end_reason,omitempty"`
	AssassinTarget string           `json:"assassin_target,omitempty"`
	Messages       []Message        `json:"messages"`
}

// PlayerView is a Snapshot plus the secret information of exactly one player
type PlayerView struct {
	Snapshot
	Self SecretInfo `json:"self"`
}

// HasVotedTeam reports whether name already cast a team vote this round.
func (s Snapshot) HasVotedTeam(name string) bool {
	for _, v := range s.TeamVoters {
		if v == name {
			return true
		}
	}
	return false
}

// HasVotedMission reports whether name already cast a mission vote this round.
func (s Snapshot) HasVotedMission(name string) bool {
	for _, v := range s.MissionVoters {
		if v == name {
			return true
		}
	}
	return false
}

// OnTeam reports whether name is on the current team.
func (s Snapshot) OnTeam(name string) bool {
	for _, v := range s.Team {
		if v == name {
			return true
		}
	}
	return false
}
