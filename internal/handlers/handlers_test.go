package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aaronzipp/avalon-alone/internal/eventlog"
	"github.com/aaronzipp/avalon-alone/internal/models"
	"github.com/aaronzipp/avalon-alone/internal/observer"
	"github.com/aaronzipp/avalon-alone/internal/orchestrator"
	"github.com/aaronzipp/avalon-alone/internal/render"
	"github.com/aaronzipp/avalon-alone/internal/session"
	"github.com/aaronzipp/avalon-alone/internal/store"
)

type testServer struct {
	ctx *Context
	mux *http.ServeMux
}

func newTestServer(t *testing.T, withLog bool) *testServer {
	t.Helper()

	ctx := &Context{
		Store:     store.NewGameStore(),
		PublicURL: "http://avalon.test",
		StartedAt: time.Now(),
		Sessions: session.Options{
			Loop: orchestrator.Config{BarrierEnabled: false},
		},
	}
	if withLog {
		log, err := eventlog.Open(context.Background(), filepath.Join(t.TempDir(), "events.db"))
		if err != nil {
			t.Fatalf("open event log: %v", err)
		}
		t.Cleanup(func() { _ = log.Close() })
		ctx.EventLog = log
		ctx.Sessions.Sinks = []observer.Sink{log}
	}
	t.Cleanup(func() {
		for _, g := range ctx.Store.List() {
			_ = g.Close(context.Background())
		}
	})

	mux := http.NewServeMux()
	ctx.Routes(mux)
	return &testServer{ctx: ctx, mux: mux}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("X-Seat-Token", token)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func players(automated bool) []models.PlayerConfig {
	names := []string{"ann", "ben", "cat", "dan", "eve"}
	out := make([]models.PlayerConfig, len(names))
	for i, n := range names {
		out[i] = models.PlayerConfig{Name: n, Automated: automated}
	}
	return out
}

func (s *testServer) create(t *testing.T, automated, autostart bool) createGameResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/games", "", createGameRequest{Players: players(automated), Autostart: &autostart})
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected create status: got=%d body=%s", rec.Code, rec.Body.String())
	}
	return decode[createGameResponse](t, rec)
}

func (s *testServer) waitPhase(t *testing.T, code string, phase models.Phase) models.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		g, ok := s.ctx.Store.Get(code)
		if !ok {
			t.Fatalf("game %s disappeared", code)
		}
		snap := g.Table().Snapshot()
		if snap.Phase == phase {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("game never reached %s (at %s)", phase, snap.Phase)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func tokens(resp createGameResponse) map[string]string {
	out := make(map[string]string)
	for _, s := range resp.Seats {
		out[s.Name] = s.Token
	}
	return out
}

func TestHealthAndRules(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, false)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected health status: %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec)["status"]; got != "ok" {
		t.Fatalf("unexpected health body: %v", got)
	}

	rules := decode[rulesResponse](t, s.do(t, http.MethodGet, "/rules", "", nil))
	if len(rules.Tables) != 6 {
		t.Fatalf("unexpected table count: got=%d want=6", len(rules.Tables))
	}
	if got := rules.Tables["7"].Missions[3].FailsNeeded; got != 2 {
		t.Fatalf("unexpected fails needed on mission 4 at 7 players: got=%d want=2", got)
	}
	if len(rules.Visibility[models.RoleLoyalServant]) != 0 {
		t.Fatalf("loyal servants must see nobody: %v", rules.Visibility[models.RoleLoyalServant])
	}
}

func TestCreateGameValidation(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, false)
	rec := s.do(t, http.MethodPost, "/games", "", createGameRequest{Players: players(true)[:4]})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
	if body := decode[render.ErrorBody](t, rec); body.Error.Code != "unsupported_player_count" {
		t.Fatalf("unexpected error code: %+v", body)
	}

	req := httptest.NewRequest(http.MethodPost, "/games", strings.NewReader("{"))
	bad := httptest.NewRecorder()
	s.mux.ServeHTTP(bad, req)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status for bad JSON: got=%d", bad.Code)
	}
	if s.ctx.Store.Count() != 0 {
		t.Fatalf("failed creates must not store games")
	}
}

func TestCreateGameIssuesTokensAndCookie(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, false)
	cfg := players(true)
	cfg[2].Automated = false
	rec := s.do(t, http.MethodPost, "/games", "", createGameRequest{Players: cfg, Autostart: new(bool)})
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	resp := decode[createGameResponse](t, rec)
	tok := tokens(resp)
	if tok["cat"] == "" || tok["ann"] != "" {
		t.Fatalf("unexpected tokens: %v", tok)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SeatCookie || cookies[0].Value != tok["cat"] {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
	if loc := rec.Header().Get("Location"); loc != "/games/"+resp.Code {
		t.Fatalf("unexpected location: %q", loc)
	}
}

func TestManualGameFlow(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, false)
	resp := s.create(t, false, true)
	tok := tokens(resp)
	base := "/games/" + resp.Code

	snap := s.waitPhase(t, resp.Code, models.PhaseTeamSelection)
	leader := snap.Leader
	var other string
	for name := range tok {
		if name != leader {
			other = name
			break
		}
	}

	if rec := s.do(t, http.MethodGet, base+"/view", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("view without token: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}
	view := decode[models.PlayerView](t, s.do(t, http.MethodGet, base+"/view", tok[leader], nil))
	if view.Self.Name != leader || view.Self.Role == "" {
		t.Fatalf("unexpected private view: %+v", view.Self)
	}

	team := []string{leader, other}
	if rec := s.do(t, http.MethodPost, base+"/team", tok[other], teamRequest{Team: team}); rec.Code != http.StatusForbidden {
		t.Fatalf("non-leader team: got=%d want=%d body=%s", rec.Code, http.StatusForbidden, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPost, base+"/team", tok[leader], teamRequest{Team: team[:1]}); rec.Code != http.StatusBadRequest {
		t.Fatalf("wrong team size: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
	if rec := s.do(t, http.MethodPost, base+"/team", tok[leader], teamRequest{Team: team}); rec.Code != http.StatusOK {
		t.Fatalf("select team: got=%d body=%s", rec.Code, rec.Body.String())
	}

	if rec := s.do(t, http.MethodPost, base+"/team-vote", tok[leader], voteRequest{Vote: "maybe"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid vote: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
	for name, token := range tok {
		if rec := s.do(t, http.MethodPost, base+"/team-vote", token, voteRequest{Vote: "approve"}); rec.Code != http.StatusOK {
			t.Fatalf("vote by %s: got=%d body=%s", name, rec.Code, rec.Body.String())
		}
	}
	if rec := s.do(t, http.MethodPost, base+"/team-vote", tok[leader], voteRequest{Vote: "approve"}); rec.Code != http.StatusConflict {
		t.Fatalf("vote after approval: got=%d want=%d", rec.Code, http.StatusConflict)
	}

	s.waitPhase(t, resp.Code, models.PhaseMissionVote)
	for _, name := range team {
		if rec := s.do(t, http.MethodPost, base+"/mission-vote", tok[name], voteRequest{Vote: "success"}); rec.Code != http.StatusOK {
			t.Fatalf("mission vote by %s: got=%d body=%s", name, rec.Code, rec.Body.String())
		}
	}

	got := decode[gameResponse](t, s.do(t, http.MethodGet, base, "", nil))
	if len(got.State.Results) != 1 || !got.State.Results[0].Success {
		t.Fatalf("unexpected results: %+v", got.State.Results)
	}
	if got.State.Mission != 2 {
		t.Fatalf("unexpected mission: got=%d want=2", got.State.Mission)
	}
	for _, p := range got.State.Players {
		if p.Role != "" {
			t.Fatalf("public snapshot leaked a role: %+v", p)
		}
	}

	if rec := s.do(t, http.MethodPost, base+"/say", tok[leader], sayRequest{Text: "good start"}); rec.Code != http.StatusNoContent {
		t.Fatalf("say: got=%d body=%s", rec.Code, rec.Body.String())
	}
	board := s.do(t, http.MethodGet, base+"/board", "", nil)
	if !strings.Contains(board.Body.String(), "good start") {
		t.Fatalf("board missing message: %s", board.Body.String())
	}
}

func TestLoopControlAndStatus(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, false)
	resp := s.create(t, false, false)
	base := "/games/" + resp.Code

	st := decode[orchestrator.Status](t, s.do(t, http.MethodGet, base+"/ai-status", "", nil))
	if st.Running {
		t.Fatalf("loop should not autostart")
	}
	if rec := s.do(t, http.MethodPost, base+"/loop/start", "", nil); rec.Code != http.StatusAccepted {
		t.Fatalf("start loop: got=%d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, base+"/loop/start", "", nil); rec.Code != http.StatusConflict {
		t.Fatalf("second start: got=%d want=%d", rec.Code, http.StatusConflict)
	}
	s.waitPhase(t, resp.Code, models.PhaseTeamSelection)

	if rec := s.do(t, http.MethodPost, base+"/loop/stop", "", nil); rec.Code != http.StatusAccepted {
		t.Fatalf("stop loop: got=%d", rec.Code)
	}
	g, _ := s.ctx.Store.Get(resp.Code)
	select {
	case <-g.Loop().Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("loop did not stop")
	}

	ack := decode[map[string]bool](t, s.do(t, http.MethodPost, base+"/ack", "", ackRequest{Seat: "ann", Stage: StageComplete}))
	if ack["accepted"] {
		t.Fatalf("ack without a pending speech must be ignored")
	}
	if rec := s.do(t, http.MethodPost, base+"/ack", "", ackRequest{Seat: "ann", Stage: "paused"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected ack status: %d", rec.Code)
	}

	if rec := s.do(t, http.MethodPost, base+"/restart", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("restart: got=%d body=%s", rec.Code, rec.Body.String())
	}
	if phase := decode[gameResponse](t, s.do(t, http.MethodGet, base, "", nil)).State.Phase; phase != models.PhaseInit {
		t.Fatalf("unexpected phase after restart: %s", phase)
	}
}

func TestCloseGame(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, false)
	resp := s.create(t, true, false)
	base := "/games/" + resp.Code

	if rec := s.do(t, http.MethodDelete, base, "", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("close: got=%d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, base, "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after close: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
	if rec := s.do(t, http.MethodDelete, base, "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second close: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
}

func TestEventLogHidesOtherSeatsSecrets(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, true)
	resp := s.create(t, false, true)
	tok := tokens(resp)
	base := "/games/" + resp.Code
	s.waitPhase(t, resp.Code, models.PhaseTeamSelection)

	type logResponse struct {
		Events []eventlog.Record `json:"events"`
	}
	count := func(records []eventlog.Record, name observer.EventName) int {
		n := 0
		for _, r := range records {
			if r.Name == name {
				n++
			}
		}
		return n
	}

	public := decode[logResponse](t, s.do(t, http.MethodGet, base+"/log", "", nil)).Events
	if count(public, observer.EventGameStarted) != 1 {
		t.Fatalf("expected game_started in log: %+v", public)
	}
	if count(public, observer.EventSecretInfo) != 0 || count(public, observer.EventRolesAssigned) != 0 {
		t.Fatalf("spectator log leaked secrets")
	}

	mine := decode[logResponse](t, s.do(t, http.MethodGet, base+"/log", tok["ann"], nil)).Events
	if count(mine, observer.EventSecretInfo) != 1 {
		t.Fatalf("expected exactly one secret_info for ann")
	}
	for _, r := range mine {
		if r.Name == observer.EventSecretInfo && r.Recipient != "ann" {
			t.Fatalf("ann received someone else's secret: %+v", r)
		}
	}

	if rec := s.do(t, http.MethodGet, base+"/log?after=x", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad after: got=%d", rec.Code)
	}
}

func TestEventLogKeepsDealsApart(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, true)
	resp := s.create(t, false, true)
	base := "/games/" + resp.Code
	s.waitPhase(t, resp.Code, models.PhaseTeamSelection)

	restarted := decode[gameResponse](t, s.do(t, http.MethodPost, base+"/restart", "", nil))
	if got, want := len(restarted.Status.Deals), 2; got != want {
		t.Fatalf("unexpected deals: got=%d want=%d", got, want)
	}
	first, current := restarted.Status.Deals[0], restarted.Status.GameID
	if first != resp.ID || current == first {
		t.Fatalf("unexpected deal keys: first=%s current=%s game=%s", first, current, resp.ID)
	}

	type logResponse struct {
		GameID string            `json:"game_id"`
		Events []eventlog.Record `json:"events"`
	}
	now := decode[logResponse](t, s.do(t, http.MethodGet, base+"/log", "", nil))
	if now.GameID != current || len(now.Events) == 0 || now.Events[0].Name != observer.EventGameReset {
		t.Fatalf("current deal log should open with game_reset: %+v", now)
	}
	old := decode[logResponse](t, s.do(t, http.MethodGet, base+"/log?game="+first, "", nil))
	if old.GameID != first || len(old.Events) == 0 {
		t.Fatalf("unexpected first deal log: %+v", old)
	}
	for _, r := range old.Events {
		if r.GameID != first || r.Name == observer.EventGameReset {
			t.Fatalf("first deal log mixed in a later deal: %+v", r)
		}
	}
	for _, r := range now.Events {
		if r.GameID != current {
			t.Fatalf("current deal log mixed in another deal: %+v", r)
		}
	}

	if rec := s.do(t, http.MethodGet, base+"/log?game=bogus", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status for unknown deal: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
}

func TestEventLogDisabled(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, false)
	resp := s.create(t, true, false)
	if rec := s.do(t, http.MethodGet, "/games/"+resp.Code+"/log", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
}

func TestQRCodeIsPNG(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, false)
	resp := s.create(t, true, false)
	rec := s.do(t, http.MethodGet, "/games/"+resp.Code+"/qr.png", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected response: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("body is not a PNG")
	}
}

func TestSSESendsCurrentStateFirst(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, false)
	resp := s.create(t, true, false)
	srv := httptest.NewServer(s.mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/games/"+resp.Code+"/events", nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer res.Body.Close()

	line, err := bufio.NewReader(res.Body).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "event: current_state\n" {
		t.Fatalf("unexpected first line: %q", line)
	}
}

func TestUnknownGame(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, false)
	for _, path := range []string{"/games/NOPE00", "/games/NOPE00/view", "/games/NOPE00/qr.png"} {
		if rec := s.do(t, http.MethodGet, path, "", nil); rec.Code != http.StatusNotFound {
			t.Fatalf("%s: got=%d want=%d", path, rec.Code, http.StatusNotFound)
		}
	}
}
