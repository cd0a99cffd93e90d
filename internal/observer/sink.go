package observer

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Sink receives events. Implementations must return promptly once ctx is done.
type Sink interface {
	Notify(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// DefaultDeliveryTimeout bounds a single sink delivery
const DefaultDeliveryTimeout = time.Second

// Fanout delivers each event to every registered sink in turn. A failing or
// slow sink is logged and skipped; it never fails the caller.
type Fanout struct {
	mu      sync.RWMutex
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
}

// NewFanout creates a fan-out over sinks. Nil sinks are ignored.
func NewFanout(logger *slog.Logger, timeout time.Duration, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	f := &Fanout{timeout: timeout, logger: logger}
	for _, s := range sinks {
		f.Add(s)
	}
	return f
}

// Add registers another sink.
func (f *Fanout) Add(s Sink) {
	if s == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

// Notify always returns nil; delivery failures are logged.
func (f *Fanout) Notify(ctx context.Context, event Event) error {
	f.mu.RLock()
	sinks := slices.Clone(f.sinks)
	f.mu.RUnlock()

	// Delivery outlives the caller's cancellation so the final events of a
	// stopping loop still reach observers.
	base := context.WithoutCancel(ctx)
	for _, s := range sinks {
		deliverCtx, cancel := context.WithTimeout(base, f.timeout)
		err := s.Notify(deliverCtx, event)
		cancel()
		if err != nil {
			f.logger.Warn("observer delivery failed", "game_id", event.GameID, "event", event.Name, "error", err)
		}
	}
	return nil
}

// Stream stamps events for one game and hands them to a sink.
type Stream struct {
	gameID atomic.Pointer[string]
	sink   Sink
	seq    atomic.Uint64
	now    func() time.Time
}

// NewStream creates a stream for gameID. A nil sink discards events.
func NewStream(gameID string, sink Sink) *Stream {
	if sink == nil {
		sink = SinkFunc(func(context.Context, Event) error { return nil })
	}
	s := &Stream{sink: sink, now: time.Now}
	s.gameID.Store(&gameID)
	return s
}

// GameID returns the game this stream belongs to.
func (s *Stream) GameID() string { return *s.gameID.Load() }

// Rekey stamps later events with gameID. Sequence numbers keep counting.
func (s *Stream) Rekey(gameID string) { s.gameID.Store(&gameID) }

// Public emits an event to every observer.
func (s *Stream) Public(ctx context.Context, name EventName, data any) error {
	return s.emit(ctx, name, Public, "", data)
}

// Private emits an event that only recipient's observers receive.
func (s *Stream) Private(ctx context.Context, recipient string, name EventName, data any) error {
	if recipient == "" {
		return errors.New("private event needs a recipient")
	}
	return s.emit(ctx, name, Private, recipient, data)
}

// System emits an event for the event log only.
func (s *Stream) System(ctx context.Context, name EventName, data any) error {
	return s.emit(ctx, name, System, "", data)
}

func (s *Stream) emit(ctx context.Context, name EventName, audience Audience, recipient string, data any) error {
	event := Event{
		ID:        uuid.NewString(),
		GameID:    s.GameID(),
		Seq:       s.seq.Add(1),
		Name:      name,
		Audience:  audience,
		Recipient: recipient,
		At:        s.now().UTC(),
		Data:      data,
	}
	return s.sink.Notify(ctx, event)
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Named returns recorded events with the given names, in order.
func (r *Recorder) Named(names ...EventName) []Event {
	var out []Event
	for _, e := range r.Events() {
		if slices.Contains(names, e.Name) {
			out = append(out, e)
		}
	}
	return out
}
