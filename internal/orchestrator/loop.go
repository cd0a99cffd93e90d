// Package orchestrator drives automated seats through a game: it asks the
// decision provider for each choice, falls back to a rule-based policy when
// the provider cannot help, and paces the table through the speech barrier.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aaronzipp/avalon-alone/internal/decision"
	"github.com/aaronzipp/avalon-alone/internal/game"
	"github.com/aaronzipp/avalon-alone/internal/models"
	"github.com/aaronzipp/avalon-alone/internal/observer"
)

const (
	// DefaultMaxIterations bounds the number of actions one run may take
	DefaultMaxIterations = 300

	// DefaultDecisionTimeout bounds a single provider call
	DefaultDecisionTimeout = 30 * time.Second
)

var (
	ErrMissingTable   = errors.New("table is required")
	ErrAlreadyRunning = errors.New("loop already running")
)

// StopReason explains why a run ended
type StopReason string

const (
	StopRequested      StopReason = "requested"
	StopTerminal       StopReason = "terminal"
	StopIterationLimit StopReason = "iteration_limit"
	StopContextDone    StopReason = "context_done"
	StopSetupFailed    StopReason = "setup_failed"
)

// Config tunes a Loop.
type Config struct {
	MaxIterations   int
	PacingDelay     time.Duration
	DecisionTimeout time.Duration
	BarrierEnabled  bool
	// BarrierTimeout releases an unacknowledged barrier. Zero waits forever.
	BarrierTimeout time.Duration
}

// Dependencies are the collaborators of a Loop. Only Table is required.
type Dependencies struct {
	Table    *Table
	Provider decision.Provider
	Fallback *Fallback
	Barrier  *Barrier
	Logger   *slog.Logger
	Tracer   trace.Tracer
}

// Status is a point-in-time description of the loop
type Status struct {
	Running          bool       `json:"is_running"`
	Iterations       int        `json:"iterations"`
	StopReason       StopReason `json:"stop_reason,omitempty"`
	CurrentSpeaker   string     `json:"current_speaker,omitempty"`
	WaitingForSpeech bool       `json:"waiting_for_voice"`
	AutomatedSeats   []string   `json:"ai_players"`
}

// Loop drives the automated seats of one table.
type Loop struct {
	table    *Table
	provider decision.Provider
	fallback *Fallback
	barrier  *Barrier
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer

	mu         sync.Mutex
	running    bool
	iterations int
	reason     StopReason
	stopCh     chan struct{}
	stopOnce   *sync.Once
	done       chan struct{}
}

// NewLoop validates dependencies and fills in defaults.
func NewLoop(deps Dependencies, cfg Config) (*Loop, error) {
	if deps.Table == nil {
		return nil, fmt.Errorf("new loop: %w", ErrMissingTable)
	}
	if deps.Provider == nil {
		deps.Provider = decision.Unavailable{}
	}
	if deps.Fallback == nil {
		deps.Fallback = NewFallback(nil)
	}
	if deps.Barrier == nil {
		deps.Barrier = &Barrier{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer("github.com/aaronzipp/avalon-alone/internal/orchestrator")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = DefaultDecisionTimeout
	}

	done := make(chan struct{})
	close(done)
	return &Loop{
		table:    deps.Table,
		provider: deps.Provider,
		fallback: deps.Fallback,
		barrier:  deps.Barrier,
		cfg:      cfg,
		logger:   deps.Logger,
		tracer:   deps.Tracer,
		done:     done,
	}, nil
}

// Start runs the loop in a new goroutine until it stops.
func (l *Loop) Start(ctx context.Context) error {
	if err := l.begin(); err != nil {
		return err
	}
	go l.run(ctx)
	return nil
}

// Run runs the loop on the calling goroutine and returns why it stopped.
func (l *Loop) Run(ctx context.Context) (StopReason, error) {
	if err := l.begin(); err != nil {
		return "", err
	}
	return l.run(ctx), nil
}

// Stop asks a running loop to stop at the next iteration boundary. A
// barrier wait in progress is not interrupted.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		l.stopOnce.Do(func() { close(l.stopCh) })
	}
}

// Done is closed when the current run ends.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Acknowledge reports that seat finished speaking.
func (l *Loop) Acknowledge(seat string) bool {
	ok := l.barrier.Acknowledge(seat)
	if !ok {
		l.logger.Debug("ignored speech acknowledgement", "game_id", l.table.Stream().GameID(), "seat", seat)
	}
	return ok
}

// Status describes the loop.
func (l *Loop) Status() Status {
	l.mu.Lock()
	st := Status{Running: l.running, Iterations: l.iterations, StopReason: l.reason}
	l.mu.Unlock()

	st.CurrentSpeaker, st.WaitingForSpeech = l.barrier.Holder()
	st.AutomatedSeats = []string{}
	for _, p := range l.table.Snapshot().Players {
		if p.Automated {
			st.AutomatedSeats = append(st.AutomatedSeats, p.Name)
		}
	}
	return st
}

func (l *Loop) begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrAlreadyRunning
	}
	l.running = true
	l.iterations = 0
	l.reason = ""
	l.stopCh = make(chan struct{})
	l.stopOnce = &sync.Once{}
	l.done = make(chan struct{})
	return nil
}

func (l *Loop) run(ctx context.Context) StopReason {
	gameID := l.table.Stream().GameID()
	logger := l.logger.With("game_id", gameID)
	logger.Info("orchestration loop started")
	_ = l.table.Stream().Public(ctx, observer.EventLoopStarted, observer.LoopPayload{Running: true})

	reason := l.drive(ctx, logger)

	l.mu.Lock()
	l.running = false
	l.reason = reason
	iterations := l.iterations
	done := l.done
	l.mu.Unlock()

	logger.Info("orchestration loop stopped", "reason", reason, "iterations", iterations)
	_ = l.table.Stream().Public(ctx, observer.EventLoopStopped, observer.LoopPayload{
		Running:    false,
		Reason:     string(reason),
		Iterations: iterations,
	})
	close(done)
	return reason
}

func (l *Loop) drive(ctx context.Context, logger *slog.Logger) StopReason {
	l.mu.Lock()
	stopCh := l.stopCh
	l.mu.Unlock()

	for {
		if reason, stop := l.shouldStop(ctx, stopCh); stop {
			return reason
		}

		changed := l.table.Changed()
		snap := l.table.Snapshot()
		if snap.Phase.Terminal() {
			return StopTerminal
		}

		act, ok := l.nextAction(snap)
		if !ok {
			// Waiting on a person. Idle waits do not count as iterations.
			select {
			case <-changed:
			case <-stopCh:
			case <-ctx.Done():
			}
			continue
		}

		l.mu.Lock()
		if l.iterations >= l.cfg.MaxIterations {
			l.mu.Unlock()
			logger.Warn("iteration limit reached", "limit", l.cfg.MaxIterations)
			return StopIterationLimit
		}
		l.iterations++
		iteration := l.iterations
		l.mu.Unlock()

		iterCtx, span := l.tracer.Start(ctx, "orchestrator.iteration", trace.WithAttributes(
			attribute.String("avalon.game_id", l.table.Stream().GameID()),
			attribute.String("avalon.phase", string(snap.Phase)),
			attribute.String("avalon.action", string(act.kind)),
			attribute.Int("avalon.iteration", iteration),
		))
		err := l.step(iterCtx, logger, snap, act)
		span.End()
		if err != nil {
			if act.kind == actionSetup {
				logger.Error("game setup failed", "error", err)
				return StopSetupFailed
			}
			// A manual action may have changed the phase while the provider
			// was thinking; the next iteration re-reads the state.
			logger.Warn("decision not applied", "seat", act.seat.Name, "action", act.kind, "error", err)
		}

		if l.cfg.PacingDelay > 0 {
			timer := time.NewTimer(l.cfg.PacingDelay)
			select {
			case <-timer.C:
			case <-stopCh:
			case <-ctx.Done():
			}
			timer.Stop()
		}
	}
}

func (l *Loop) shouldStop(ctx context.Context, stopCh <-chan struct{}) (StopReason, bool) {
	select {
	case <-stopCh:
		return StopRequested, true
	default:
	}
	if ctx.Err() != nil {
		return StopContextDone, true
	}
	return "", false
}

type actionKind string

const (
	actionSetup         actionKind = "setup"
	actionTeam          actionKind = "team"
	actionTeamVote      actionKind = "team_vote"
	actionMissionVote   actionKind = "mission_vote"
	actionAssassination actionKind = "assassination"
)

type action struct {
	kind actionKind
	seat models.Player
}

// nextAction picks the single automated seat that should act now, lowest
// seat first. ok is false when only manual seats can move the game.
func (l *Loop) nextAction(snap models.Snapshot) (action, bool) {
	switch snap.Phase {
	case models.PhaseInit, models.PhaseRoleAssignment, models.PhaseSecretInfo:
		return action{kind: actionSetup}, true
	case models.PhaseTeamSelection:
		if leader := snap.Players[snap.LeaderIndex]; leader.Automated {
			return action{kind: actionTeam, seat: leader}, true
		}
	case models.PhaseTeamVote:
		for _, p := range snap.Players {
			if p.Automated && !snap.HasVotedTeam(p.Name) {
				return action{kind: actionTeamVote, seat: p}, true
			}
		}
	case models.PhaseMissionVote:
		for _, p := range snap.Players {
			if p.Automated && snap.OnTeam(p.Name) && !snap.HasVotedMission(p.Name) {
				return action{kind: actionMissionVote, seat: p}, true
			}
		}
	case models.PhaseAssassination:
		for _, p := range l.table.Assignments() {
			if p.Role == models.RoleAssassin && p.Automated {
				return action{kind: actionAssassination, seat: p}, true
			}
		}
	}
	return action{}, false
}

func (l *Loop) step(ctx context.Context, logger *slog.Logger, snap models.Snapshot, act action) error {
	if act.kind == actionSetup {
		return l.table.Setup(ctx)
	}

	view, err := l.table.ViewFor(act.seat.Name)
	if err != nil {
		return err
	}
	logger = logger.With("seat", act.seat.Name, "action", act.kind)

	switch act.kind {
	case actionTeam:
		candidates := playerNames(snap.Players)
		size := snap.Slot.TeamSize
		team, err := callProvider(ctx, l.cfg.DecisionTimeout, func(ctx context.Context) ([]string, error) {
			team, err := l.provider.ProposeTeam(ctx, decision.TeamRequest{View: view, TeamSize: size, Candidates: candidates})
			if err != nil {
				return nil, err
			}
			return team, decision.ValidateTeam(team, size, candidates)
		})
		fallback := err != nil
		if fallback {
			logger.Warn("decision provider failed, using fallback", "error", err)
			team = l.fallback.Team(act.seat.Name, size, candidates)
		}
		if !l.announce(ctx, logger, view, string(act.kind), fmt.Sprintf("I propose %s for mission %d.", strings.Join(team, ", "), snap.Mission)) {
			return ctx.Err()
		}
		_, err = l.table.SelectTeam(ctx, act.seat.Name, team, fallback)
		return err

	case actionTeamVote:
		vote, err := callProvider(ctx, l.cfg.DecisionTimeout, func(ctx context.Context) (models.TeamVote, error) {
			vote, err := l.provider.ProposeTeamVote(ctx, decision.VoteRequest{View: view, Team: snap.Team})
			if err == nil && !vote.Valid() {
				err = fmt.Errorf("%w: team vote %q", decision.ErrInvalidProposal, vote)
			}
			return vote, err
		})
		fallback := err != nil
		if fallback {
			logger.Warn("decision provider failed, using fallback", "error", err)
			vote = l.fallback.TeamVote(view.Self.Role, snap.Team, l.roles())
		}
		if !l.announce(ctx, logger, view, string(act.kind), fmt.Sprintf("I have decided on %s.", strings.Join(snap.Team, ", "))) {
			return ctx.Err()
		}
		_, err = l.table.VoteTeam(ctx, act.seat.Name, vote, fallback)
		return err

	case actionMissionVote:
		vote, err := callProvider(ctx, l.cfg.DecisionTimeout, func(ctx context.Context) (models.MissionVote, error) {
			vote, err := l.provider.ProposeMissionVote(ctx, decision.VoteRequest{View: view, Team: snap.Team})
			if err == nil && !vote.Valid() {
				err = fmt.Errorf("%w: mission vote %q", decision.ErrInvalidProposal, vote)
			}
			return vote, err
		})
		fallback := err != nil
		if fallback {
			logger.Warn("decision provider failed, using fallback", "error", err)
			vote = l.fallback.MissionVote(view.Self.Role)
		}
		if !l.announce(ctx, logger, view, string(act.kind), fmt.Sprintf("Mission %d, here we go.", snap.Mission)) {
			return ctx.Err()
		}
		_, err = l.table.VoteMission(ctx, act.seat.Name, vote, fallback)
		return err

	case actionAssassination:
		candidates := l.assassinationCandidates()
		target, err := callProvider(ctx, l.cfg.DecisionTimeout, func(ctx context.Context) (string, error) {
			target, err := l.provider.ProposeAssassinationTarget(ctx, decision.AssassinationRequest{View: view, Candidates: candidates})
			if err != nil {
				return "", err
			}
			return target, decision.ValidateTarget(target, candidates)
		})
		fallback := err != nil
		if fallback {
			logger.Warn("decision provider failed, using fallback", "error", err)
			target = l.fallback.Target(candidates)
		}
		if !l.announce(ctx, logger, view, string(act.kind), "I know who Merlin is.") {
			return ctx.Err()
		}
		_, err = l.table.Assassinate(ctx, act.seat.Name, target, fallback)
		return err
	}
	return fmt.Errorf("unknown action %q", act.kind)
}

// announce records what the seat says and holds the barrier until the
// speech is acknowledged or times out. It returns false only when ctx ended.
func (l *Loop) announce(ctx context.Context, logger *slog.Logger, view models.PlayerView, kind, cannedLine string) bool {
	if !l.cfg.BarrierEnabled {
		return true
	}

	line := cannedLine
	if speaker, ok := l.provider.(decision.Speaker); ok {
		spoken, err := callProvider(ctx, l.cfg.DecisionTimeout, func(ctx context.Context) (string, error) {
			return speaker.Speak(ctx, decision.SpeechRequest{View: view, Context: cannedLine})
		})
		if err == nil {
			line = spoken
		} else {
			logger.Debug("speech unavailable, using canned line", "error", err)
		}
	}

	l.barrier.Arm(view.Self.Name)
	if err := l.table.Say(ctx, view.Self.Name, line, kind); err != nil {
		l.barrier.Acknowledge(view.Self.Name)
		logger.Warn("speech not recorded", "error", err)
		return ctx.Err() == nil
	}

	switch l.barrier.Wait(ctx, l.cfg.BarrierTimeout) {
	case BarrierTimedOut:
		logger.Warn("speech not acknowledged in time, continuing", "timeout", l.cfg.BarrierTimeout)
	case BarrierCancelled:
		return false
	}
	_ = l.table.Stream().Public(ctx, observer.EventSpeechCompleted, observer.SpeakingPayload{
		Speaker:   view.Self.Name,
		Automated: true,
		Decision:  kind,
	})
	return true
}

func (l *Loop) roles() map[string]models.Role {
	players := l.table.Assignments()
	roles := make(map[string]models.Role, len(players))
	for _, p := range players {
		roles[p.Name] = p.Role
	}
	return roles
}

func (l *Loop) assassinationCandidates() []string {
	var names []string
	for _, p := range l.table.Assignments() {
		if game.AlignmentOf(p.Role) == models.Good {
			names = append(names, p.Name)
		}
	}
	return names
}

func callProvider[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return call(ctx)
}

func playerNames(players []models.Player) []string {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	return names
}
