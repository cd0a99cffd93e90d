// Package observer carries game events to whoever is watching: browsers over
// SSE or WebSocket and the append-only event log.
package observer

import (
	"encoding/json"
	"time"

	"github.com/aaronzipp/avalon-alone/internal/game"
	"github.com/aaronzipp/avalon-alone/internal/models"
)

// EventName identifies the payload schema of an Event
type EventName string

const (
	EventCurrentState        EventName = "current_state"
	EventGameStarted         EventName = "game_started"
	EventRolesAssigned       EventName = "roles_assigned"
	EventSecretInfo          EventName = "secret_info"
	EventMissionsBegin       EventName = "missions_begin"
	EventTeamSelected        EventName = "team_selected"
	EventTeamVoteRecorded    EventName = "team_vote_recorded"
	EventMissionVoteRecorded EventName = "mission_vote_recorded"
	EventAssassinationResult EventName = "assassination_result"
	EventPlayerSpeaking      EventName = "player_speaking"
	EventSpeechCompleted     EventName = "speech_completed"
	EventLoopStarted         EventName = "loop_started"
	EventLoopStopped         EventName = "loop_stopped"
	EventGameReset           EventName = "game_reset"
	EventGameClosed          EventName = "game_closed"
)

// Audience decides who may receive an event
type Audience string

const (
	// Public events go to every observer.
	Public Audience = "public"
	// Private events go only to the observer bound to Recipient.
	Private Audience = "private"
	// System events are recorded by the event log and never pushed to clients.
	System Audience = "system"
)

// Event is a single notification about a game
type Event struct {
	ID        string    `json:"id"`
	GameID    string    `json:"game_id"`
	Seq       uint64    `json:"seq"`
	Name      EventName `json:"event"`
	Audience  Audience  `json:"audience"`
	Recipient string    `json:"recipient,omitempty"`
	At        time.Time `json:"at"`
	Data      any       `json:"data,omitempty"`
}

// VisibleTo reports whether a client bound to player may receive the event.
// An empty player is an anonymous spectator.
func (e Event) VisibleTo(player string) bool {
	switch e.Audience {
	case Public:
		return true
	case Private:
		return player != "" && player == e.Recipient
	default:
		return false
	}
}

// DataJSON encodes the payload.
func (e Event) DataJSON() ([]byte, error) {
	if e.Data == nil {
		return []byte("null"), nil
	}
	return json.Marshal(e.Data)
}

// Decision kinds carried by DecisionPayload
const (
	DecisionTeam          = "team"
	DecisionTeamVote      = "team_vote"
	DecisionMissionVote   = "mission_vote"
	DecisionAssassination = "assassination"
)

// DecisionPayload accompanies every committed game decision. Mission ballots
// are secret, so Vote stays empty for mission votes.
type DecisionPayload struct {
	Decision string          `json:"decision"`
	Actor    string          `json:"actor"`
	Team     []string        `json:"team,omitempty"`
	Vote     string          `json:"vote,omitempty"`
	Target   string          `json:"target,omitempty"`
	Fallback bool            `json:"fallback,omitempty"`
	Outcome  game.Outcome    `json:"outcome"`
	State    models.Snapshot `json:"state"`
}

// SpeakingPayload announces that a seat is talking and the table should wait
type SpeakingPayload struct {
	Speaker   string `json:"speaker"`
	Message   string `json:"message"`
	Automated bool   `json:"is_ai"`
	Decision  string `json:"decision"`
}

// StatePayload carries a plain snapshot
type StatePayload struct {
	State models.Snapshot `json:"state"`
}

// AssignmentPayload records the full deal; System audience only
type AssignmentPayload struct {
	Players []models.Player `json:"players"`
}

// LoopPayload describes orchestration loop lifecycle changes
type LoopPayload struct {
	Running    bool   `json:"running"`
	Reason     string `json:"reason,omitempty"`
	Iterations int    `json:"iterations"`
}
