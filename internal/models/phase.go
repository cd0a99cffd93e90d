package models

// Phase represents the current stage of an Avalon game
type Phase string

const (
	PhaseInit           Phase = "init"
	PhaseRoleAssignment Phase = "role_assignment"
	PhaseSecretInfo     Phase = "secret_info"
	PhaseTeamSelection  Phase = "team_selection"
	PhaseTeamVote       Phase = "team_vote"
	PhaseMissionVote    Phase = "mission_vote"
	PhaseAssassination  Phase = "assassination"
	PhaseTerminal       Phase = "terminal"
)

// Phases lists every phase in the order a game normally passes through them.
func Phases() []Phase {
	return []Phase{
		PhaseInit,
		PhaseRoleAssignment,
		PhaseSecretInfo,
		PhaseTeamSelection,
		PhaseTeamVote,
		PhaseMissionVote,
		PhaseAssassination,
		PhaseTerminal,
	}
}

// Terminal reports whether no further game operation can succeed.
func (p Phase) Terminal() bool {
	return p == PhaseTerminal
}

// Setup reports whether the phase belongs to the pre-mission setup sequence.
func (p Phase) Setup() bool {
	return p == PhaseInit || p == PhaseRoleAssignment || p == PhaseSecretInfo
}

// OutcomeStatus names the effect an accepted engine operation had.
type OutcomeStatus string

const (
	StatusStarted          OutcomeStatus = "started"
	StatusRolesAssigned    OutcomeStatus = "roles_assigned"
	StatusSecretsRevealed  OutcomeStatus = "secrets_revealed"
	StatusTeamSelected     OutcomeStatus = "team_selected"
	StatusVoteRecorded     OutcomeStatus = "vote_recorded"
	StatusTeamApproved     OutcomeStatus = "team_approved"
	StatusTeamRejected     OutcomeStatus = "team_rejected"
	StatusMissionCompleted OutcomeStatus = "mission_completed"
	StatusGoodMissionWin   OutcomeStatus = "good_mission_win"
	StatusEvilWin          OutcomeStatus = "evil_win"
	StatusGoodWin          OutcomeStatus = "good_win"
	StatusMessageRecorded  OutcomeStatus = "message_recorded"
)

// EndReason explains why a game reached the terminal phase.
type EndReason string

const (
	EndRejectionLimit     EndReason = "rejection_limit"
	EndMissionsFailed     EndReason = "missions_failed"
	EndMerlinAssassinated EndReason = "merlin_assassinated"
	EndMerlinSurvived     EndReason = "merlin_survived"
)
