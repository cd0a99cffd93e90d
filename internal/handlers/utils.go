package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aaronzipp/avalon-alone/internal/render"
	"github.com/aaronzipp/avalon-alone/internal/session"
)

// SeatCookie carries the seat token of the browser's player
const SeatCookie = "seat_token"

const maxBodyBytes = 64 << 10

// seatToken reads the seat token from the header, the query or the cookie
func seatToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get("X-Seat-Token")); token != "" {
		return token
	}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(SeatCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// getGame looks up the game named in the path, writing a 404 if missing
func (ctx *Context) getGame(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	game, exists := ctx.Store.Get(r.PathValue("id"))
	if !exists {
		render.Error(w, http.StatusNotFound, "game_not_found", "game not found")
		return nil, false
	}
	return game, true
}

// getGameAndSeat validates the seat token against the game in the path
func (ctx *Context) getGameAndSeat(w http.ResponseWriter, r *http.Request) (*session.Session, string, bool) {
	game, ok := ctx.getGame(w, r)
	if !ok {
		return nil, "", false
	}
	seat, member := game.SeatForToken(seatToken(r))
	if !member {
		render.Error(w, http.StatusUnauthorized, "unauthorized", "a valid seat token is required")
		return nil, "", false
	}
	return game, seat, true
}

// optionalSeat resolves the seat token if one is present. Spectators get "".
func optionalSeat(game *session.Session, r *http.Request) string {
	seat, _ := game.SeatForToken(seatToken(r))
	return seat
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid_body", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
