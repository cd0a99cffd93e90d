package eventlog

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/aaronzipp/avalon-alone/internal/observer"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.db")
	for i := 0; i < 2; i++ {
		store, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		_ = store.Close()
	}
}

func TestNotifyAndList(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	at := time.Date(2026, time.March, 3, 20, 0, 0, 0, time.UTC)

	events := []observer.Event{
		{ID: "e1", GameID: "g1", Seq: 1, Name: observer.EventGameStarted, Audience: observer.Public, At: at},
		{ID: "e2", GameID: "g1", Seq: 2, Name: observer.EventSecretInfo, Audience: observer.Private, Recipient: "alice", At: at, Data: map[string]string{"role": "merlin"}},
		{ID: "e3", GameID: "g2", Seq: 1, Name: observer.EventGameStarted, Audience: observer.Public, At: at},
		{ID: "e4", GameID: "g1", Seq: 3, Name: observer.EventMissionsBegin, Audience: observer.Public, At: at},
	}
	for _, ev := range events {
		if err := store.Notify(ctx, ev); err != nil {
			t.Fatalf("notify %s: %v", ev.ID, err)
		}
	}
	// Redelivery is ignored
	if err := store.Notify(ctx, events[0]); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	got, err := store.List(ctx, "g1", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("unexpected record count: got=%d want=3", len(got))
	}
	for i, want := range []string{"e1", "e2", "e4"} {
		if got[i].ID != want {
			t.Fatalf("unexpected order at %d: got=%s want=%s", i, got[i].ID, want)
		}
	}
	secret := got[1]
	if secret.Recipient != "alice" || secret.Audience != observer.Private || !secret.At.Equal(at) {
		t.Fatalf("unexpected secret record: %+v", secret)
	}
	var data map[string]string
	if err := json.Unmarshal(secret.Data, &data); err != nil || data["role"] != "merlin" {
		t.Fatalf("unexpected data: %s (%v)", secret.Data, err)
	}

	after, err := store.List(ctx, "g1", 2, 10)
	if err != nil {
		t.Fatalf("list after: %v", err)
	}
	if len(after) != 1 || after[0].Seq != 3 {
		t.Fatalf("unexpected records after seq 2: %+v", after)
	}

	n, err := store.Count(ctx, "g2")
	if err != nil || n != 1 {
		t.Fatalf("unexpected count: got=%d err=%v", n, err)
	}
}

func TestNotifyValidatesInput(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.Notify(context.Background(), observer.Event{Name: observer.EventGameStarted}); err == nil {
		t.Fatal("expected missing id error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Notify(ctx, observer.Event{ID: "x", GameID: "g"}); err == nil {
		t.Fatal("expected cancelled context error")
	}
}

func TestUpSection(t *testing.T) {
	t.Parallel()

	content := "-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;\n"
	if got := upSection(content); got != "\nCREATE TABLE a (id INT);\n" {
		t.Fatalf("unexpected up section: %q", got)
	}
	if got := upSection("SELECT 1;"); got != "SELECT 1;" {
		t.Fatalf("unexpected passthrough: %q", got)
	}
}
