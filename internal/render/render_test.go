package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aaronzipp/avalon-alone/internal/game"
	"github.com/aaronzipp/avalon-alone/internal/models"
)

func TestBoardEscapesNames(t *testing.T) {
	t.Parallel()

	snap := models.Snapshot{
		Phase:    models.PhaseTeamSelection,
		Mission:  1,
		Leader:   "<b>ann</b>",
		Slot:     models.MissionSlot{Index: 1, TeamSize: 2, FailsNeeded: 1},
		Players:  []models.Player{{Name: "<b>ann</b>", Automated: true}, {Name: "ben"}},
		Plan:     []models.MissionSlot{{Index: 1, TeamSize: 2, FailsNeeded: 1}, {Index: 2, TeamSize: 3, FailsNeeded: 2}},
		Messages: []models.Message{{Speaker: "ben", Text: "<script>x</script>"}},
	}
	html := Board(snap)
	if strings.Contains(html, "<b>ann</b>") || strings.Contains(html, "<script>") {
		t.Fatalf("unescaped content in board: %s", html)
	}
	for _, want := range []string{"&lt;b&gt;ann&lt;/b&gt; is choosing 2 players", "mission-current", ">3*<", "is-leader", "badge-pill"} {
		if !strings.Contains(html, want) {
			t.Fatalf("board missing %q: %s", want, html)
		}
	}
}

func TestMissionTrackMarksResults(t *testing.T) {
	t.Parallel()

	snap := models.Snapshot{
		Phase:   models.PhaseTeamSelection,
		Mission: 3,
		Plan:    []models.MissionSlot{{Index: 1, TeamSize: 2}, {Index: 2, TeamSize: 3}, {Index: 3, TeamSize: 2}},
		Results: []models.MissionResult{{Mission: 1, Success: true}, {Mission: 2, Success: false}},
	}
	html := MissionTrack(snap)
	for _, want := range []string{"mission mission-success", "mission mission-fail", "mission mission-current"} {
		if !strings.Contains(html, want) {
			t.Fatalf("track missing %q: %s", want, html)
		}
	}
}

func TestVoteHistoryListsBallots(t *testing.T) {
	t.Parallel()

	html := VoteHistory([]models.TeamVoteRecord{{
		Mission: 1, Attempt: 1, Leader: "ann", Team: []string{"ann", "ben"},
		Votes: map[string]models.TeamVote{"ann": models.Approve, "ben": models.Reject, "cat": models.Approve},
	}})
	if !strings.Contains(html, "<td>ann, cat</td><td>ben</td>") {
		t.Fatalf("unexpected vote history: %s", html)
	}
	if VoteHistory(nil) != "" {
		t.Fatalf("empty history should render nothing")
	}
}

func TestRejectionStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{err: game.Reject("vote team", game.CodeDuplicateVote, "ann already voted"), status: http.StatusConflict, code: "duplicate_vote"},
		{err: fmt.Errorf("wrapped: %w", game.Reject("select team", game.CodeWrongTeamSize, "need 2")), status: http.StatusBadRequest, code: "wrong_team_size"},
		{err: game.Reject("select team", game.CodeNotYourTurn, "not leader"), status: http.StatusForbidden, code: "not_your_turn"},
		{err: errors.New("disk on fire"), status: http.StatusInternalServerError, code: "internal"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		Rejection(rec, tt.err)
		if rec.Code != tt.status {
			t.Fatalf("unexpected status for %v: got=%d want=%d", tt.err, rec.Code, tt.status)
		}
		var body ErrorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Error.Code != tt.code {
			t.Fatalf("unexpected code: got=%q want=%q", body.Error.Code, tt.code)
		}
	}
}
