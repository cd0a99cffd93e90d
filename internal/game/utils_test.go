package game

import (
	"strings"
	"testing"
)

func TestUniqueGameCode(t *testing.T) {
	t.Parallel()

	calls := 0
	code := UniqueGameCode(func(string) bool {
		calls++
		return calls < 3
	})
	if calls != 3 {
		t.Fatalf("unexpected attempts: got=%d want=3", calls)
	}
	if len(code) != GameCodeLength {
		t.Fatalf("unexpected code length: got=%d", len(code))
	}
	for _, c := range code {
		if !strings.ContainsRune(GameCodeChars, c) {
			t.Fatalf("unexpected character %q in %s", c, code)
		}
	}
}
