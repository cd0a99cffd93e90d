package handlers

import (
	"net/http"
	"strconv"

	"github.com/aaronzipp/avalon-alone/internal/observer"
	"github.com/aaronzipp/avalon-alone/internal/render"
	"github.com/aaronzipp/avalon-alone/internal/session"
	"github.com/aaronzipp/avalon-alone/internal/sse"
)

// initialEvents is what a freshly connected observer needs to draw the table
func initialEvents(g *session.Session, seat string) []observer.Event {
	table := g.Table()
	events := []observer.Event{
		sessionEvent(g, observer.EventCurrentState, observer.Public, "", observer.StatePayload{State: table.Snapshot()}),
	}
	if seat == "" {
		return events
	}
	if view, err := table.ViewFor(seat); err == nil && view.Self.Role != "" {
		events = append(events, sessionEvent(g, observer.EventSecretInfo, observer.Private, seat, view.Self))
	}
	return events
}

// HandleSSE streams game events. Private events need a seat token.
func (ctx *Context) HandleSSE(w http.ResponseWriter, r *http.Request) {
	g, ok := ctx.getGame(w, r)
	if !ok {
		return
	}
	seat := optionalSeat(g, r)
	ctx.logger().Debug("sse client connected", "code", g.Code, "seat", seat)

	var initial []sse.Message
	for _, ev := range initialEvents(g, seat) {
		msg, err := sse.NewMessage(ev)
		if err != nil {
			ctx.logger().Warn("encode initial sse frame", "error", err)
			continue
		}
		msg.ID = ""
		initial = append(initial, msg)
	}
	g.SSE.Serve(w, r, seat, initial...)
}

// HandleWebSocket upgrades to a WebSocket carrying the same events plus
// speech acknowledgements from the client
func (ctx *Context) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	g, ok := ctx.getGame(w, r)
	if !ok {
		return
	}
	seat := optionalSeat(g, r)
	if err := g.WS.Serve(w, r, seat, initialEvents(g, seat)...); err != nil {
		ctx.logger().Debug("websocket session ended", "code", g.Code, "error", err)
	}
}

// HandleEventLog returns stored events the caller may see for one deal of
// the game. The current deal is read unless ?game= names an earlier one.
func (ctx *Context) HandleEventLog(w http.ResponseWriter, r *http.Request) {
	g, ok := ctx.getGame(w, r)
	if !ok {
		return
	}
	if ctx.EventLog == nil {
		render.Error(w, http.StatusNotFound, "event_log_disabled", "the event log is disabled")
		return
	}

	query := r.URL.Query()
	after, err := parseUint(query.Get("after"))
	if err != nil {
		render.Error(w, http.StatusBadRequest, "invalid_query", "after must be a non-negative integer")
		return
	}
	limit, err := parseUint(query.Get("limit"))
	if err != nil {
		render.Error(w, http.StatusBadRequest, "invalid_query", "limit must be a non-negative integer")
		return
	}

	gameID := query.Get("game")
	if gameID == "" {
		gameID = g.GameID()
	} else if !g.HasDeal(gameID) {
		render.Error(w, http.StatusNotFound, "deal_not_found", "no such deal in this game")
		return
	}

	records, err := ctx.EventLog.List(r.Context(), gameID, after, int(limit))
	if err != nil {
		ctx.logger().Error("read event log", "code", g.Code, "error", err)
		render.Error(w, http.StatusInternalServerError, "internal", "could not read the event log")
		return
	}

	seat := optionalSeat(g, r)
	visible := records[:0]
	for _, rec := range records {
		ev := observer.Event{Audience: rec.Audience, Recipient: rec.Recipient}
		if ev.VisibleTo(seat) {
			visible = append(visible, rec)
		}
	}
	render.JSON(w, http.StatusOK, map[string]any{"game_id": gameID, "events": visible})
}

func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
