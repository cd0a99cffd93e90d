package handlers

import (
	"net/http"

	"github.com/aaronzipp/avalon-alone/internal/models"
	"github.com/aaronzipp/avalon-alone/internal/render"
)

type teamRequest struct {
	Team []string `json:"team"`
}

type voteRequest struct {
	Vote string `json:"vote"`
}

type targetRequest struct {
	Target string `json:"target"`
}

type sayRequest struct {
	Text string `json:"text"`
}

// Ack stages
const (
	StageStarted  = "started"
	StageComplete = "complete"
)

type ackRequest struct {
	Seat  string `json:"seat"`
	Stage string `json:"stage"`
}

// HandleView returns the caller's private view
func (ctx *Context) HandleView(w http.ResponseWriter, r *http.Request) {
	g, seat, ok := ctx.getGameAndSeat(w, r)
	if !ok {
		return
	}
	view, err := g.Table().ViewFor(seat)
	if err != nil {
		render.Rejection(w, err)
		return
	}
	render.JSON(w, http.StatusOK, view)
}

// HandleSelectTeam lets a manual leader propose a team
func (ctx *Context) HandleSelectTeam(w http.ResponseWriter, r *http.Request) {
	g, seat, ok := ctx.getGameAndSeat(w, r)
	if !ok {
		return
	}
	var req teamRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := g.Table().SelectTeam(r.Context(), seat, req.Team, false)
	if err != nil {
		render.Rejection(w, err)
		return
	}
	render.JSON(w, http.StatusOK, out)
}

// HandleTeamVote records a manual approve/reject ballot
func (ctx *Context) HandleTeamVote(w http.ResponseWriter, r *http.Request) {
	g, seat, ok := ctx.getGameAndSeat(w, r)
	if !ok {
		return
	}
	var req voteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := g.Table().VoteTeam(r.Context(), seat, models.TeamVote(req.Vote), false)
	if err != nil {
		render.Rejection(w, err)
		return
	}
	render.JSON(w, http.StatusOK, out)
}

// HandleMissionVote records a manual success/fail ballot
func (ctx *Context) HandleMissionVote(w http.ResponseWriter, r *http.Request) {
	g, seat, ok := ctx.getGameAndSeat(w, r)
	if !ok {
		return
	}
	var req voteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := g.Table().VoteMission(r.Context(), seat, models.MissionVote(req.Vote), false)
	if err != nil {
		render.Rejection(w, err)
		return
	}
	render.JSON(w, http.StatusOK, out)
}

// HandleAssassinate lets a manual assassin name Merlin
func (ctx *Context) HandleAssassinate(w http.ResponseWriter, r *http.Request) {
	g, seat, ok := ctx.getGameAndSeat(w, r)
	if !ok {
		return
	}
	var req targetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := g.Table().Assassinate(r.Context(), seat, req.Target, false)
	if err != nil {
		render.Rejection(w, err)
		return
	}
	render.JSON(w, http.StatusOK, out)
}

// HandleSay records a line of table talk from the caller's seat
func (ctx *Context) HandleSay(w http.ResponseWriter, r *http.Request) {
	g, seat, ok := ctx.getGameAndSeat(w, r)
	if !ok {
		return
	}
	var req sayRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := g.Chat(r.Context(), seat, req.Text); err != nil {
		ctx.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAck receives speech playback signals. Any observer may send them.
func (ctx *Context) HandleAck(w http.ResponseWriter, r *http.Request) {
	g, ok := ctx.getGame(w, r)
	if !ok {
		return
	}
	var req ackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	switch req.Stage {
	case StageStarted:
		g.SpeechStarted(req.Seat)
		render.JSON(w, http.StatusOK, map[string]bool{"accepted": true})
	case StageComplete, "":
		render.JSON(w, http.StatusOK, map[string]bool{"accepted": g.Acknowledge(req.Seat)})
	default:
		render.Error(w, http.StatusBadRequest, "invalid_stage", "stage must be started or complete")
	}
}
