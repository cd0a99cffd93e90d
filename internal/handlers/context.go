// Package handlers exposes games over HTTP, SSE and WebSocket.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aaronzipp/avalon-alone/internal/eventlog"
	"github.com/aaronzipp/avalon-alone/internal/session"
	"github.com/aaronzipp/avalon-alone/internal/store"
)

// Context holds shared application dependencies
type Context struct {
	Store *store.GameStore
	// Sessions is the template every new game is built from
	Sessions  session.Options
	EventLog  *eventlog.Store
	Logger    *slog.Logger
	PublicURL string
	AIEnabled bool
	StartedAt time.Time
}

// Routes registers every endpoint on mux.
func (ctx *Context) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", ctx.HandleHealth)
	mux.HandleFunc("GET /rules", ctx.HandleRules)

	mux.HandleFunc("GET /games", ctx.HandleListGames)
	mux.HandleFunc("POST /games", ctx.HandleCreateGame)
	mux.HandleFunc("GET /games/{id}", ctx.HandleGetGame)
	mux.HandleFunc("DELETE /games/{id}", ctx.HandleCloseGame)
	mux.HandleFunc("POST /games/{id}/restart", ctx.HandleRestartGame)
	mux.HandleFunc("POST /games/{id}/loop/start", ctx.HandleStartLoop)
	mux.HandleFunc("POST /games/{id}/loop/stop", ctx.HandleStopLoop)
	mux.HandleFunc("GET /games/{id}/ai-status", ctx.HandleAIStatus)
	mux.HandleFunc("GET /games/{id}/board", ctx.HandleBoard)

	mux.HandleFunc("GET /games/{id}/view", ctx.HandleView)
	mux.HandleFunc("POST /games/{id}/team", ctx.HandleSelectTeam)
	mux.HandleFunc("POST /games/{id}/team-vote", ctx.HandleTeamVote)
	mux.HandleFunc("POST /games/{id}/mission-vote", ctx.HandleMissionVote)
	mux.HandleFunc("POST /games/{id}/assassinate", ctx.HandleAssassinate)
	mux.HandleFunc("POST /games/{id}/say", ctx.HandleSay)
	mux.HandleFunc("POST /games/{id}/ack", ctx.HandleAck)

	mux.HandleFunc("GET /games/{id}/events", ctx.HandleSSE)
	mux.HandleFunc("GET /games/{id}/ws", ctx.HandleWebSocket)
	mux.HandleFunc("GET /games/{id}/log", ctx.HandleEventLog)
	mux.HandleFunc("GET /games/{id}/qr.png", ctx.HandleQRCode)
}

func (ctx *Context) logger() *slog.Logger {
	if ctx.Logger == nil {
		return slog.Default()
	}
	return ctx.Logger
}
