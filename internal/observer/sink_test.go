package observer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestFanoutSkipsFailingAndSlowSinks(t *testing.T) {
	t.Parallel()

	var rec Recorder
	failing := SinkFunc(func(context.Context, Event) error { return errors.New("broken pipe") })
	slow := SinkFunc(func(ctx context.Context, _ Event) error {
		<-ctx.Done()
		return ctx.Err()
	})
	fan := NewFanout(slog.New(slog.NewTextHandler(io.Discard, nil)), 20*time.Millisecond, failing, slow, &rec)

	start := time.Now()
	if err := fan.Notify(context.Background(), Event{Name: EventTeamSelected}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("slow sink blocked fan-out for %s", elapsed)
	}
	if got := len(rec.Events()); got != 1 {
		t.Fatalf("unexpected recorded events: got=%d want=1", got)
	}
}

func TestFanoutDeliversAfterCancel(t *testing.T) {
	t.Parallel()

	var rec Recorder
	fan := NewFanout(nil, 0, &rec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = fan.Notify(ctx, Event{Name: EventLoopStopped})
	if got := len(rec.Named(EventLoopStopped)); got != 1 {
		t.Fatalf("unexpected recorded events: got=%d want=1", got)
	}
}

func TestStreamStampsEvents(t *testing.T) {
	t.Parallel()

	var rec Recorder
	s := NewStream("game-1", &rec)
	ctx := context.Background()
	_ = s.Public(ctx, EventTeamSelected, nil)
	_ = s.Private(ctx, "ana", EventSecretInfo, nil)
	_ = s.System(ctx, EventRolesAssigned, nil)
	if err := s.Private(ctx, "", EventSecretInfo, nil); err == nil {
		t.Fatalf("expected error for private event without recipient")
	}

	events := rec.Events()
	if len(events) != 3 {
		t.Fatalf("unexpected event count: got=%d want=3", len(events))
	}
	for i, e := range events {
		if e.Seq != uint64(i+1) || e.GameID != "game-1" || e.ID == "" {
			t.Fatalf("event %d not stamped: %+v", i, e)
		}
	}
}

func TestVisibleTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		event  Event
		player string
		want   bool
	}{
		{Event{Audience: Public}, "", true},
		{Event{Audience: Public}, "ana", true},
		{Event{Audience: Private, Recipient: "ana"}, "ana", true},
		{Event{Audience: Private, Recipient: "ana"}, "bo", false},
		{Event{Audience: Private, Recipient: "ana"}, "", false},
		{Event{Audience: System}, "ana", false},
	}
	for _, tt := range tests {
		if got := tt.event.VisibleTo(tt.player); got != tt.want {
			t.Fatalf("VisibleTo(%q) for %+v: got=%v want=%v", tt.player, tt.event, got, tt.want)
		}
	}
}
