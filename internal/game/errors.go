package game

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable rejection reason
type Code string

const (
	CodeWrongPhase             Code = "wrong_phase"
	CodeWrongTeamSize          Code = "wrong_team_size"
	CodeUnknownPlayer          Code = "unknown_player"
	CodeDuplicatePlayer        Code = "duplicate_player"
	CodeDuplicateVote          Code = "duplicate_vote"
	CodeNotOnTeam              Code = "not_on_team"
	CodeInvalidVote            Code = "invalid_vote"
	CodeInvalidTarget          Code = "invalid_target"
	CodeGameOver               Code = "game_over"
	CodeUnsupportedPlayerCount Code = "unsupported_player_count"
	CodeDuplicateName          Code = "duplicate_name"
	CodeInvalidName            Code = "invalid_name"
	CodeInvalidMessage         Code = "invalid_message"
	CodeNotYourTurn            Code = "not_your_turn"
)

// Rejection is returned when an operation is not legal in the current state.
// A rejected operation never mutates the game.
type Rejection struct {
	Code   Code
	Op     string
	Detail string
}

func (r *Rejection) Error() string {
	if r.Op == "" {
		return string(r.Code)
	}
	if r.Detail == "" {
		return fmt.Sprintf("%s: %s", r.Op, r.Code)
	}
	return fmt.Sprintf("%s: %s: %s", r.Op, r.Code, r.Detail)
}

// Is matches any rejection carrying the same code, so the sentinels below
// work with errors.Is.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Code == r.Code
}

var (
	ErrWrongPhase             = &Rejection{Code: CodeWrongPhase}
	ErrWrongTeamSize          = &Rejection{Code: CodeWrongTeamSize}
	ErrUnknownPlayer          = &Rejection{Code: CodeUnknownPlayer}
	ErrDuplicatePlayer        = &Rejection{Code: CodeDuplicatePlayer}
	ErrDuplicateVote          = &Rejection{Code: CodeDuplicateVote}
	ErrNotOnTeam              = &Rejection{Code: CodeNotOnTeam}
	ErrInvalidVote            = &Rejection{Code: CodeInvalidVote}
	ErrInvalidTarget          = &Rejection{Code: CodeInvalidTarget}
	ErrGameOver               = &Rejection{Code: CodeGameOver}
	ErrUnsupportedPlayerCount = &Rejection{Code: CodeUnsupportedPlayerCount}
	ErrDuplicateName          = &Rejection{Code: CodeDuplicateName}
	ErrInvalidName            = &Rejection{Code: CodeInvalidName}
	ErrInvalidMessage         = &Rejection{Code: CodeInvalidMessage}
	ErrNotYourTurn            = &Rejection{Code: CodeNotYourTurn}
)

// Reject builds a rejection for checks made outside the engine, such as
// whether the caller holds the seat allowed to act.
func Reject(op string, code Code, format string, args ...any) *Rejection {
	return reject(op, code, format, args...)
}

func reject(op string, code Code, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the rejection code from err, if any.
func CodeOf(err error) (Code, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Code, true
	}
	return "", false
}
