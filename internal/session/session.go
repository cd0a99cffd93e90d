// Package session binds one game's engine, orchestration loop and observer
// hubs together and hands out seat tokens to the people playing it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/aaronzipp/avalon-alone/internal/decision"
	"github.com/aaronzipp/avalon-alone/internal/game"
	"github.com/aaronzipp/avalon-alone/internal/models"
	"github.com/aaronzipp/avalon-alone/internal/observer"
	"github.com/aaronzipp/avalon-alone/internal/orchestrator"
	"github.com/aaronzipp/avalon-alone/internal/sse"
	"github.com/aaronzipp/avalon-alone/internal/ws"
)

// ErrClosed is returned for operations on a closed session.
var ErrClosed = errors.New("game closed")

// DefaultObserverTimeout bounds delivery of one event to one sink.
const DefaultObserverTimeout = time.Second

// Seat is one chair at the table. Token is only set for manual seats.
type Seat struct {
	Name      string `json:"name"`
	Seat      int    `json:"seat"`
	Automated bool   `json:"is_ai"`
	Token     string `json:"-"`
}

// Options configures new sessions.
type Options struct {
	Loop            orchestrator.Config
	Provider        decision.Provider
	Sinks           []observer.Sink
	ObserverTimeout time.Duration
	Logger          *slog.Logger
	Tracer          trace.Tracer
	// BaseContext parents every loop run. Defaults to context.Background.
	BaseContext   context.Context
	EngineOptions []game.Option
}

// Session is one live game.
type Session struct {
	ID        string
	Code      string
	CreatedAt time.Time

	SSE *sse.Hub
	WS  *ws.Hub

	players []models.PlayerConfig
	seats   []Seat
	tokens  map[string]string
	stream  *observer.Stream
	deals   []string
	opts    Options
	logger  *slog.Logger

	mu        sync.RWMutex
	table     *orchestrator.Table
	loop      *orchestrator.Loop
	cancelRun context.CancelFunc
	closed    bool
}

// Status summarises a session for status endpoints
type Status struct {
	ID        string              `json:"id"`
	Code      string              `json:"code"`
	Phase     models.Phase        `json:"phase"`
	Seats     []Seat              `json:"seats"`
	Loop      orchestrator.Status `json:"loop"`
	GameID    string              `json:"game_id"`
	Deals     []string            `json:"deals"`
	Observers int                 `json:"observers"`
	Closed    bool                `json:"closed"`
}

// New validates the roster and builds a session in the init phase. The loop
// is not started.
func New(code string, players []models.PlayerConfig, opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ObserverTimeout <= 0 {
		opts.ObserverTimeout = DefaultObserverTimeout
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}

	engine, err := game.NewEngine(players, opts.EngineOptions...)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        uuid.NewString(),
		Code:      code,
		CreatedAt: time.Now().UTC(),
		players:   append([]models.PlayerConfig(nil), players...),
		tokens:    make(map[string]string),
		opts:      opts,
	}
	s.logger = opts.Logger.With("game_id", s.ID, "code", code)

	for _, p := range engine.Snapshot().Players {
		seat := Seat{Name: p.Name, Seat: p.Seat, Automated: p.Automated}
		if !p.Automated {
			seat.Token = uuid.NewString()
			s.tokens[seat.Token] = p.Name
		}
		s.seats = append(s.seats, seat)
	}

	s.SSE = sse.NewHub(s.logger)
	s.WS = ws.NewHub(s, s.logger)
	sinks := append([]observer.Sink{s.SSE, s.WS}, opts.Sinks...)
	s.stream = observer.NewStream(s.ID, observer.NewFanout(s.logger, opts.ObserverTimeout, sinks...))
	s.deals = []string{s.ID}

	if err := s.install(engine); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) install(engine *game.Engine) error {
	table := orchestrator.NewTable(engine, s.stream)
	loop, err := orchestrator.NewLoop(orchestrator.Dependencies{
		Table:    table,
		Provider: s.opts.Provider,
		Logger:   s.opts.Logger,
		Tracer:   s.opts.Tracer,
	}, s.opts.Loop)
	if err != nil {
		return err
	}
	s.table = table
	s.loop = loop
	return nil
}

// Table returns the current table.
func (s *Session) Table() *orchestrator.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Loop returns the current orchestration loop.
func (s *Session) Loop() *orchestrator.Loop {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loop
}

// Stream returns the event stream shared by every table of this session.
func (s *Session) Stream() *observer.Stream { return s.stream }

// GameID returns the event log key of the current deal. The first deal uses
// the session ID; each restart gets a fresh one.
func (s *Session) GameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deals[len(s.deals)-1]
}

// Deals returns the event log keys of every deal, oldest first.
func (s *Session) Deals() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.deals...)
}

// HasDeal reports whether gameID keys one of this session's deals.
func (s *Session) HasDeal(gameID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.deals, gameID)
}

// Seats returns the seating chart.
func (s *Session) Seats() []Seat {
	return append([]Seat(nil), s.seats...)
}

// SeatForToken resolves a seat token to a player name.
func (s *Session) SeatForToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	name, ok := s.tokens[token]
	return name, ok
}

// StartLoop starts the orchestration loop.
func (s *Session) StartLoop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.startLocked()
}

func (s *Session) startLocked() error {
	runCtx, cancel := context.WithCancel(s.opts.BaseContext)
	if err := s.loop.Start(runCtx); err != nil {
		cancel()
		return err
	}
	s.cancelRun = cancel
	return nil
}

// StopLoop asks the loop to stop at its next iteration boundary.
func (s *Session) StopLoop() {
	s.Loop().Stop()
}

// halt stops the loop, aborting any speech wait, and waits for it to exit.
// Must be called with s.mu held.
func (s *Session) halt(ctx context.Context) error {
	s.loop.Stop()
	if s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
	}
	select {
	case <-s.loop.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for loop: %w", ctx.Err())
	}
}

// Restart deals a fresh game to the same seats. A running loop is restarted.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	wasRunning := s.loop.Status().Running
	if err := s.halt(ctx); err != nil {
		return err
	}

	engine, err := game.NewEngine(s.players, s.opts.EngineOptions...)
	if err != nil {
		return err
	}
	if err := s.install(engine); err != nil {
		return err
	}
	deal := uuid.NewString()
	s.deals = append(s.deals, deal)
	s.stream.Rekey(deal)
	s.logger.Info("game restarted", "deal", deal)
	_ = s.stream.Public(ctx, observer.EventGameReset, observer.StatePayload{State: s.table.Snapshot()})

	if wasRunning {
		return s.startLocked()
	}
	return nil
}

// Close stops the loop and disconnects every observer. It is idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.halt(ctx)
	_ = s.stream.Public(ctx, observer.EventGameClosed, nil)
	s.SSE.Close()
	s.WS.Close()
	s.logger.Info("game closed")
	return err
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Status describes the session.
func (s *Session) Status() Status {
	s.mu.RLock()
	table, loop, closed := s.table, s.loop, s.closed
	deals := append([]string(nil), s.deals...)
	s.mu.RUnlock()

	return Status{
		ID:        s.ID,
		Code:      s.Code,
		Phase:     table.Snapshot().Phase,
		Seats:     s.Seats(),
		Loop:      loop.Status(),
		GameID:    deals[len(deals)-1],
		Deals:     deals,
		Observers: s.SSE.ClientCount() + s.WS.ClientCount(),
		Closed:    closed,
	}
}

// Acknowledge forwards a speech acknowledgement to the loop.
func (s *Session) Acknowledge(seat string) bool {
	return s.Loop().Acknowledge(seat)
}

// SpeechStarted records that a client began playing seat's speech.
func (s *Session) SpeechStarted(seat string) {
	s.logger.Debug("speech playback started", "seat", seat)
}

// Chat records a line of table talk from a manual seat.
func (s *Session) Chat(ctx context.Context, player, text string) error {
	if s.Closed() {
		return ErrClosed
	}
	return s.Table().Say(ctx, player, text, "chat")
}
