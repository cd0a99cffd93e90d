package store

import (
	"context"
	"testing"

	"github.com/aaronzipp/avalon-alone/internal/models"
	"github.com/aaronzipp/avalon-alone/internal/session"
)

func newSession(t *testing.T, code string) *session.Session {
	t.Helper()
	players := []models.PlayerConfig{{Name: "ann"}, {Name: "ben"}, {Name: "cat"}, {Name: "dan"}, {Name: "eve"}}
	s, err := session.New(code, players, session.Options{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestGameStoreLifecycle(t *testing.T) {
	t.Parallel()

	st := NewGameStore()
	first := newSession(t, "ABC234")
	if !st.Add(first) {
		t.Fatalf("first add rejected")
	}
	if st.Add(newSession(t, "abc234")) {
		t.Fatalf("duplicate code accepted")
	}
	if !st.Exists(" abc234 ") {
		t.Fatalf("lookup must ignore case and whitespace")
	}
	got, ok := st.Get("abc234")
	if !ok || got != first {
		t.Fatalf("unexpected get: %v %v", got, ok)
	}

	second := newSession(t, "XYZ789")
	st.Add(second)
	if st.Count() != 2 {
		t.Fatalf("unexpected count: got=%d want=2", st.Count())
	}
	list := st.List()
	if len(list) != 2 || list[0] != first || list[1] != second {
		t.Fatalf("unexpected list order")
	}

	removed, ok := st.Delete("ABC234")
	if !ok || removed != first {
		t.Fatalf("unexpected delete: %v %v", removed, ok)
	}
	if _, ok := st.Delete("ABC234"); ok {
		t.Fatalf("second delete should report missing")
	}
	if st.Exists("ABC234") {
		t.Fatalf("deleted game still exists")
	}
}
