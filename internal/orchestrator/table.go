package orchestrator

import (
	"context"
	"sync"

	"github.com/aaronzipp/avalon-alone/internal/game"
	"github.com/aaronzipp/avalon-alone/internal/models"
	"github.com/aaronzipp/avalon-alone/internal/observer"
)

// Table serializes every mutation of one game, whether it comes from the
// loop or from a person, and publishes the matching event while still
// holding the lock so observers see events in commit order.
type Table struct {
	mu      sync.Mutex
	engine  *game.Engine
	stream  *observer.Stream
	changed chan struct{}
}

// NewTable wraps engine. Events are published on stream.
func NewTable(engine *game.Engine, stream *observer.Stream) *Table {
	if stream == nil {
		stream = observer.NewStream("", nil)
	}
	return &Table{engine: engine, stream: stream, changed: make(chan struct{})}
}

// Snapshot returns the public view.
func (t *Table) Snapshot() models.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.Snapshot()
}

// ViewFor returns player's private view.
func (t *Table) ViewFor(player string) (models.PlayerView, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.ViewFor(player)
}

// Assignments returns every seat with its role.
func (t *Table) Assignments() []models.Player {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.Assignments()
}

// Changed returns a channel that is closed by the next accepted operation.
func (t *Table) Changed() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changed
}

// Setup runs whatever is left of start, role assignment and secret delivery.
// Secret information goes to each player privately.
func (t *Table) Setup(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.engine.Phase() == models.PhaseInit {
		if _, err := t.engine.Start(); err != nil {
			return err
		}
		t.notifyChanged()
		_ = t.stream.Public(ctx, observer.EventGameStarted, observer.StatePayload{State: t.engine.Snapshot()})
	}
	if t.engine.Phase() == models.PhaseRoleAssignment {
		if _, err := t.engine.AssignRoles(); err != nil {
			return err
		}
		t.notifyChanged()
		_ = t.stream.System(ctx, observer.EventRolesAssigned, observer.AssignmentPayload{Players: t.engine.Assignments()})
		for _, p := range t.engine.Assignments() {
			view, err := t.engine.ViewFor(p.Name)
			if err != nil {
				return err
			}
			_ = t.stream.Private(ctx, p.Name, observer.EventSecretInfo, view.Self)
		}
	}
	if t.engine.Phase() == models.PhaseSecretInfo {
		if _, err := t.engine.RevealSecrets(); err != nil {
			return err
		}
		t.notifyChanged()
		_ = t.stream.Public(ctx, observer.EventMissionsBegin, observer.StatePayload{State: t.engine.Snapshot()})
	}
	return nil
}

// SelectTeam proposes team on behalf of actor, who must be the current leader.
func (t *Table) SelectTeam(ctx context.Context, actor string, team []string, fallback bool) (game.Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if leader := t.engine.Snapshot().Leader; actor != leader && !t.engine.Phase().Terminal() {
		return game.Outcome{}, game.Reject("select team", game.CodeNotYourTurn, "%q is not the leader", actor)
	}
	out, err := t.engine.SelectTeam(team)
	if err != nil {
		return out, err
	}
	t.publishDecision(ctx, observer.DecisionPayload{
		Decision: observer.DecisionTeam,
		Actor:    actor,
		Team:     team,
		Fallback: fallback,
		Outcome:  out,
	}, observer.EventTeamSelected)
	return out, nil
}

// VoteTeam records player's team vote.
func (t *Table) VoteTeam(ctx context.Context, player string, vote models.TeamVote, fallback bool) (game.Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	out, err := t.engine.VoteTeam(player, vote)
	if err != nil {
		return out, err
	}
	t.publishDecision(ctx, observer.DecisionPayload{
		Decision: observer.DecisionTeamVote,
		Actor:    player,
		Vote:     string(vote),
		Fallback: fallback,
		Outcome:  out,
	}, observer.EventTeamVoteRecorded)
	return out, nil
}

// VoteMission records player's mission vote. The ballot itself is not published.
func (t *Table) VoteMission(ctx context.Context, player string, vote models.MissionVote, fallback bool) (game.Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	out, err := t.engine.VoteMission(player, vote)
	if err != nil {
		return out, err
	}
	t.publishDecision(ctx, observer.DecisionPayload{
		Decision: observer.DecisionMissionVote,
		Actor:    player,
		Fallback: fallback,
		Outcome:  out,
	}, observer.EventMissionVoteRecorded)
	return out, nil
}

// Assassinate resolves the assassination on behalf of actor, who must hold the assassin role.
func (t *Table) Assassinate(ctx context.Context, actor, target string, fallback bool) (game.Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.engine.Player(actor); !ok || (p.Role != models.RoleAssassin && !t.engine.Phase().Terminal()) {
		return game.Outcome{}, game.Reject("assassinate", game.CodeNotYourTurn, "%q is not the assassin", actor)
	}
	out, err := t.engine.Assassinate(target)
	if err != nil {
		return out, err
	}
	t.publishDecision(ctx, observer.DecisionPayload{
		Decision: observer.DecisionAssassination,
		Actor:    actor,
		Target:   target,
		Fallback: fallback,
		Outcome:  out,
	}, observer.EventAssassinationResult)
	return out, nil
}

// Say records a line of table talk and announces the speaker.
func (t *Table) Say(ctx context.Context, player, text, decisionKind string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.engine.Say(player, text); err != nil {
		return err
	}
	t.notifyChanged()
	p, _ := t.engine.Player(player)
	msgs := t.engine.Snapshot().Messages
	_ = t.stream.Public(ctx, observer.EventPlayerSpeaking, observer.SpeakingPayload{
		Speaker:   player,
		Message:   msgs[len(msgs)-1].Text,
		Automated: p.Automated,
		Decision:  decisionKind,
	})
	return nil
}

// Stream returns the event stream of this table.
func (t *Table) Stream() *observer.Stream { return t.stream }

func (t *Table) publishDecision(ctx context.Context, payload observer.DecisionPayload, name observer.EventName) {
	t.notifyChanged()
	payload.State = t.engine.Snapshot()
	_ = t.stream.Public(ctx, name, payload)
}

// notifyChanged must be called with t.mu held.
func (t *Table) notifyChanged() {
	close(t.changed)
	t.changed = make(chan struct{})
}
