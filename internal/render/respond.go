// Package render turns game state into HTTP responses: JSON bodies, error
// envelopes and small HTML fragments for the board.
package render

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aaronzipp/avalon-alone/internal/game"
)

// ErrorBody is the JSON error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable code and a human message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write json response", "error", err)
	}
}

// HTML writes an HTML fragment.
func HTML(w http.ResponseWriter, status int, fragment string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(fragment))
}

// Error writes an error envelope with an explicit status and code.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// Rejection writes err, mapping game rejections to a status code. Anything
// that is not a rejection is an internal error.
func Rejection(w http.ResponseWriter, err error) {
	code, ok := game.CodeOf(err)
	if !ok {
		Error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	Error(w, StatusFor(code), string(code), err.Error())
}

// StatusFor maps a rejection code to an HTTP status.
func StatusFor(code game.Code) int {
	switch code {
	case game.CodeUnknownPlayer:
		return http.StatusNotFound
	case game.CodeNotYourTurn:
		return http.StatusForbidden
	case game.CodeWrongTeamSize, game.CodeDuplicatePlayer, game.CodeInvalidVote,
		game.CodeInvalidTarget, game.CodeUnsupportedPlayerCount, game.CodeDuplicateName,
		game.CodeInvalidName, game.CodeInvalidMessage:
		return http.StatusBadRequest
	default:
		// wrong_phase, duplicate_vote, not_on_team, game_over
		return http.StatusConflict
	}
}

// IsRejection reports whether err is a game rejection.
func IsRejection(err error) bool {
	var r *game.Rejection
	return errors.As(err, &r)
}
