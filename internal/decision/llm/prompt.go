package llm

import (
	"fmt"
	"strings"

	"github.com/aaronzipp/avalon-alone/internal/decision"
	"github.com/aaronzipp/avalon-alone/internal/game"
	"github.com/aaronzipp/avalon-alone/internal/models"
)

// systemPrompt tells the model who it is and what it privately knows.
func systemPrompt(view models.PlayerView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, seat %d, playing The Resistance: Avalon with %d players.\n",
		view.Self.Name, view.Self.Seat, len(view.Players))
	fmt.Fprintf(&b, "Your role is %s and you fight for %s.\n", view.Self.Role, view.Self.Alignment)
	if info, ok := game.Lookup(view.Self.Role); ok {
		fmt.Fprintf(&b, "Role ability: %s\n", info.Description)
	}
	if len(view.Self.Visible) > 0 {
		switch view.Self.Role {
		case models.RolePercival:
			fmt.Fprintf(&b, "One of these players is Merlin and the other is Morgana: %s.\n", strings.Join(view.Self.Visible, ", "))
		case models.RoleMerlin:
			fmt.Fprintf(&b, "You know these players are evil: %s.\n", strings.Join(view.Self.Visible, ", "))
		default:
			fmt.Fprintf(&b, "Your evil allies are: %s.\n", strings.Join(view.Self.Visible, ", "))
		}
	}
	b.WriteString("Never reveal your role or your secret knowledge directly. Answer with exactly what is asked and nothing else.")
	return b.String()
}

// stateSummary describes the public game state.
func stateSummary(view models.PlayerView) string {
	var b strings.Builder
	names := make([]string, len(view.Players))
	for i, p := range view.Players {
		names[i] = p.Name
	}
	fmt.Fprintf(&b, "Players in seat order: %s.\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "Mission %d of %d, team size %d, %d fail(s) needed to sink it.\n",
		view.Mission, game.MissionCount, view.Slot.TeamSize, view.Slot.FailsNeeded)
	fmt.Fprintf(&b, "Score: good %d, evil %d. Rejected teams this mission: %d of %d.\n",
		view.Successes, view.Failures, view.Rejections, game.MaxRejections)
	fmt.Fprintf(&b, "Current leader: %s.\n", view.Leader)
	for _, r := range view.Results {
		outcome := "succeeded"
		if !r.Success {
			outcome = "failed"
		}
		fmt.Fprintf(&b, "Mission %d with %s %s (%d fail votes).\n", r.Mission, strings.Join(r.Team, ", "), outcome, r.FailCount)
	}
	if n := len(view.TeamVotes); n > 0 {
		last := view.TeamVotes[n-1]
		var approvers []string
		for name, v := range last.Votes {
			if v == models.Approve {
				approvers = append(approvers, name)
			}
		}
		fmt.Fprintf(&b, "Last proposal by %s (%s) was approved by: %s.\n", last.Leader, strings.Join(last.Team, ", "), strings.Join(approvers, ", "))
	}
	if n := len(view.Messages); n > 0 {
		b.WriteString("Recent table talk:\n")
		for _, m := range view.Messages[max(0, n-8):] {
			fmt.Fprintf(&b, "- %s: %s\n", m.Speaker, m.Text)
		}
	}
	return b.String()
}

func teamPrompt(req decision.TeamRequest) string {
	return stateSummary(req.View) + fmt.Sprintf(
		"You are the leader. Choose exactly %d players from: %s.\nReply with a JSON array of names only, for example [\"%s\"].",
		req.TeamSize, strings.Join(req.Candidates, ", "), req.View.Self.Name)
}

func teamVotePrompt(req decision.VoteRequest) string {
	return stateSummary(req.View) + fmt.Sprintf(
		"The proposed team is: %s.\nReply with one word: approve or reject.", strings.Join(req.Team, ", "))
}

func missionVotePrompt(req decision.VoteRequest) string {
	return stateSummary(req.View) + fmt.Sprintf(
		"You are on the mission with %s.\nReply with one word: success or fail.", strings.Join(req.Team, ", "))
}

func assassinationPrompt(req decision.AssassinationRequest) string {
	return stateSummary(req.View) + fmt.Sprintf(
		"Good has completed three missions. Name the player you believe is Merlin from: %s.\nReply with the name only.",
		strings.Join(req.Candidates, ", "))
}

func speechPrompt(req decision.SpeechRequest) string {
	return stateSummary(req.View) + fmt.Sprintf(
		"%s\nSay one short sentence (under %d characters) to the table, in character.", req.Context, maxSpeechLength)
}
