package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aaronzipp/avalon-alone/internal/game"
	"github.com/aaronzipp/avalon-alone/internal/models"
	"github.com/aaronzipp/avalon-alone/internal/observer"
	"github.com/aaronzipp/avalon-alone/internal/orchestrator"
	"github.com/aaronzipp/avalon-alone/internal/render"
	"github.com/aaronzipp/avalon-alone/internal/session"
)

const closeTimeout = 5 * time.Second

type createGameRequest struct {
	Players   []models.PlayerConfig `json:"players"`
	Autostart *bool                 `json:"autostart,omitempty"`
}

type seatResponse struct {
	Name      string `json:"name"`
	Seat      int    `json:"seat"`
	Automated bool   `json:"is_ai"`
	Token     string `json:"token,omitempty"`
}

type createGameResponse struct {
	ID    string         `json:"id"`
	Code  string         `json:"code"`
	Seats []seatResponse `json:"seats"`
}

type gameResponse struct {
	Status session.Status  `json:"status"`
	State  models.Snapshot `json:"state"`
}

type rulesResponse struct {
	Roles      []game.RoleInfo               `json:"roles"`
	Phases     []models.Phase                `json:"phases"`
	Tables     map[string]tableRules         `json:"tables"`
	Visibility map[models.Role][]models.Role `json:"visibility"`
}

type tableRules struct {
	Roles    []models.Role        `json:"roles"`
	Missions []models.MissionSlot `json:"missions"`
}

// HandleHealth reports liveness
func (ctx *Context) HandleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"games":      ctx.Store.Count(),
		"ai_enabled": ctx.AIEnabled,
		"event_log":  ctx.EventLog != nil,
		"uptime":     time.Since(ctx.StartedAt).Round(time.Second).String(),
	})
}

// HandleRules describes roles, phases and the per-size tables
func (ctx *Context) HandleRules(w http.ResponseWriter, r *http.Request) {
	resp := rulesResponse{
		Roles:      game.Roles(),
		Phases:     models.Phases(),
		Tables:     make(map[string]tableRules),
		Visibility: make(map[models.Role][]models.Role),
	}
	for _, n := range game.SupportedPlayerCounts() {
		roles, _ := game.RolesFor(n)
		plan, _ := game.MissionPlan(n)
		resp.Tables[strconv.Itoa(n)] = tableRules{Roles: roles, Missions: plan}
	}
	for _, viewer := range resp.Roles {
		seen := []models.Role{}
		for _, subject := range resp.Roles {
			if viewer.Role != subject.Role && game.CanSee(viewer.Role, subject.Role) {
				seen = append(seen, subject.Role)
			}
		}
		resp.Visibility[viewer.Role] = seen
	}
	render.JSON(w, http.StatusOK, resp)
}

// HandleListGames lists live games
func (ctx *Context) HandleListGames(w http.ResponseWriter, r *http.Request) {
	games := ctx.Store.List()
	out := make([]session.Status, 0, len(games))
	for _, g := range games {
		out = append(out, g.Status())
	}
	render.JSON(w, http.StatusOK, map[string]any{"games": out})
}

// HandleCreateGame seats a new table and, unless told otherwise, starts the loop
func (ctx *Context) HandleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var g *session.Session
	for {
		code := game.UniqueGameCode(ctx.Store.Exists)
		var err error
		g, err = session.New(code, req.Players, ctx.Sessions)
		if err != nil {
			render.Rejection(w, err)
			return
		}
		if ctx.Store.Add(g) {
			break
		}
	}

	if req.Autostart == nil || *req.Autostart {
		if err := g.StartLoop(); err != nil {
			ctx.logger().Error("start loop for new game", "code", g.Code, "error", err)
		}
	}

	resp := createGameResponse{ID: g.ID, Code: g.Code}
	var manual []string
	for _, seat := range g.Seats() {
		resp.Seats = append(resp.Seats, seatResponse(seat))
		if seat.Token != "" {
			manual = append(manual, seat.Token)
		}
	}

	// A single human seat gets a session cookie so the browser just works
	if len(manual) == 1 {
		http.SetCookie(w, &http.Cookie{
			Name:     SeatCookie,
			Value:    manual[0],
			Path:     "/games/" + g.Code,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	ctx.logger().Info("created game", "game_id", g.ID, "code", g.Code, "players", len(req.Players), "manual", len(manual))
	w.Header().Set("Location", "/games/"+g.Code)
	render.JSON(w, http.StatusCreated, resp)
}

// HandleGetGame returns the public snapshot and loop status
func (ctx *Context) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	g, ok := ctx.getGame(w, r)
	if !ok {
		return
	}
	render.JSON(w, http.StatusOK, gameResponse{Status: g.Status(), State: g.Table().Snapshot()})
}

// HandleCloseGame stops the loop, disconnects observers and forgets the game
func (ctx *Context) HandleCloseGame(w http.ResponseWriter, r *http.Request) {
	g, exists := ctx.Store.Delete(r.PathValue("id"))
	if !exists {
		render.Error(w, http.StatusNotFound, "game_not_found", "game not found")
		return
	}

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), closeTimeout)
	defer cancel()
	if err := g.Close(closeCtx); err != nil {
		ctx.logger().Warn("close game", "code", g.Code, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRestartGame deals a fresh game to the same seats
func (ctx *Context) HandleRestartGame(w http.ResponseWriter, r *http.Request) {
	g, ok := ctx.getGame(w, r)
	if !ok {
		return
	}

	restartCtx, cancel := context.WithTimeout(r.Context(), closeTimeout)
	defer cancel()
	if err := g.Restart(restartCtx); err != nil {
		ctx.writeSessionError(w, err)
		return
	}
	render.JSON(w, http.StatusOK, gameResponse{Status: g.Status(), State: g.Table().Snapshot()})
}

// HandleStartLoop starts the orchestration loop
func (ctx *Context) HandleStartLoop(w http.ResponseWriter, r *http.Request) {
	g, ok := ctx.getGame(w, r)
	if !ok {
		return
	}
	if err := g.StartLoop(); err != nil {
		ctx.writeSessionError(w, err)
		return
	}
	render.JSON(w, http.StatusAccepted, g.Loop().Status())
}

// HandleStopLoop asks the loop to stop after the current action
func (ctx *Context) HandleStopLoop(w http.ResponseWriter, r *http.Request) {
	g, ok := ctx.getGame(w, r)
	if !ok {
		return
	}
	g.StopLoop()
	render.JSON(w, http.StatusAccepted, g.Loop().Status())
}

// HandleAIStatus reports loop state, the current speaker and barrier waiting
func (ctx *Context) HandleAIStatus(w http.ResponseWriter, r *http.Request) {
	g, ok := ctx.getGame(w, r)
	if !ok {
		return
	}
	render.JSON(w, http.StatusOK, g.Loop().Status())
}

// HandleBoard serves the board as an HTML fragment
func (ctx *Context) HandleBoard(w http.ResponseWriter, r *http.Request) {
	g, ok := ctx.getGame(w, r)
	if !ok {
		return
	}
	render.HTML(w, http.StatusOK, render.Board(g.Table().Snapshot()))
}

func (ctx *Context) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrClosed):
		render.Error(w, http.StatusGone, "game_closed", err.Error())
	case errors.Is(err, orchestrator.ErrAlreadyRunning):
		render.Error(w, http.StatusConflict, "loop_running", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		render.Error(w, http.StatusServiceUnavailable, "timeout", err.Error())
	default:
		render.Rejection(w, err)
	}
}

// sessionEvent builds an unsequenced event for initial stream frames
func sessionEvent(g *session.Session, name observer.EventName, audience observer.Audience, recipient string, data any) observer.Event {
	return observer.Event{
		GameID:    g.ID,
		Name:      name,
		Audience:  audience,
		Recipient: recipient,
		At:        time.Now().UTC(),
		Data:      data,
	}
}
