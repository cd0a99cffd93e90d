package render

import (
	htmlpkg "html"
	"slices"
	"strconv"
	"strings"

	"github.com/aaronzipp/avalon-alone/internal/game"
	"github.com/aaronzipp/avalon-alone/internal/models"
)

// Board generates the HTML fragment for the whole table
func Board(snap models.Snapshot) string {
	var b strings.Builder
	b.WriteString(`<section class="board" data-phase="`)
	b.WriteString(string(snap.Phase))
	b.WriteString(`">`)
	b.WriteString(PhaseBanner(snap))
	b.WriteString(MissionTrack(snap))
	b.WriteString(SeatList(snap))
	b.WriteString(VoteHistory(snap.TeamVotes))
	b.WriteString(MessageLog(snap.Messages))
	b.WriteString(`</section>`)
	return b.String()
}

// PhaseBanner generates the headline for the current phase
func PhaseBanner(snap models.Snapshot) string {
	var b strings.Builder
	b.WriteString(`<header class="phase-banner"><h2>`)
	switch snap.Phase {
	case models.PhaseTeamSelection:
		b.WriteString(`Mission `)
		b.WriteString(strconv.Itoa(snap.Mission))
		b.WriteString(`: `)
		b.WriteString(htmlpkg.EscapeString(snap.Leader))
		b.WriteString(` is choosing `)
		b.WriteString(strconv.Itoa(snap.Slot.TeamSize))
		b.WriteString(` players`)
	case models.PhaseTeamVote:
		b.WriteString(`Vote on the team`)
	case models.PhaseMissionVote:
		b.WriteString(`Mission `)
		b.WriteString(strconv.Itoa(snap.Mission))
		b.WriteString(` underway`)
	case models.PhaseAssassination:
		b.WriteString(`The assassin is choosing a target`)
	case models.PhaseTerminal:
		if snap.Winner == models.Good {
			b.WriteString(`Good wins`)
		} else {
			b.WriteString(`Evil wins`)
		}
	default:
		b.WriteString(`Setting up the table`)
	}
	b.WriteString(`</h2>`)
	if snap.Phase == models.PhaseTeamVote || snap.Phase == models.PhaseMissionVote || snap.Phase == models.PhaseTeamSelection {
		b.WriteString(`<p class="rejections">Rejected teams: `)
		b.WriteString(strconv.Itoa(snap.Rejections))
		b.WriteString(`/`)
		b.WriteString(strconv.Itoa(game.MaxRejections))
		b.WriteString(`</p>`)
	}
	if snap.Phase == models.PhaseTerminal && snap.EndReason != "" {
		b.WriteString(`<p class="end-reason">`)
		b.WriteString(endReasonText(snap))
		b.WriteString(`</p>`)
	}
	b.WriteString(`</header>`)
	return b.String()
}

// MissionTrack generates HTML for the five mission tokens
func MissionTrack(snap models.Snapshot) string {
	var b strings.Builder
	b.WriteString(`<ol class="mission-track">`)
	for _, slot := range snap.Plan {
		class := "mission"
		label := strconv.Itoa(slot.TeamSize)
		if idx := slot.Index - 1; idx < len(snap.Results) {
			if snap.Results[idx].Success {
				class += " mission-success"
			} else {
				class += " mission-fail"
			}
		} else if slot.Index == snap.Mission && !snap.Phase.Terminal() {
			class += " mission-current"
		}
		if slot.FailsNeeded > 1 {
			label += "*"
		}
		b.WriteString(`<li class="`)
		b.WriteString(class)
		b.WriteString(`">`)
		b.WriteString(label)
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ol>`)
	return b.String()
}

// SeatList generates HTML for the seats, marking the leader, the team and
// who has voted
func SeatList(snap models.Snapshot) string {
	var b strings.Builder
	b.WriteString(`<h3>Players (`)
	b.WriteString(strconv.Itoa(len(snap.Players)))
	b.WriteString(`)</h3><ul class="player-list">`)
	for _, p := range snap.Players {
		b.WriteString(`<li class="player-item`)
		if p.Name == snap.Leader {
			b.WriteString(` is-leader`)
		}
		if snap.OnTeam(p.Name) {
			b.WriteString(` on-team`)
		}
		b.WriteString(`"><span class="player-name">`)
		b.WriteString(htmlpkg.EscapeString(p.Name))
		b.WriteString(`</span>`)
		if p.Automated {
			b.WriteString(`<span class="badge-pill">AI</span>`)
		}
		if p.Role != "" {
			b.WriteString(`<span class="role">`)
			b.WriteString(htmlpkg.EscapeString(string(p.Role)))
			b.WriteString(`</span>`)
		}
		if (snap.Phase == models.PhaseTeamVote && snap.HasVotedTeam(p.Name)) ||
			(snap.Phase == models.PhaseMissionVote && snap.HasVotedMission(p.Name)) {
			b.WriteString(`<span class="vote-status">✓</span>`)
		}
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul>`)
	return b.String()
}

// VoteHistory generates HTML for completed team votes, newest first
func VoteHistory(records []models.TeamVoteRecord) string {
	if len(records) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<h3>Team votes</h3><table class="vote-table"><thead><tr><th>Mission</th><th>Leader</th><th>Team</th><th>Approve</th><th>Reject</th></tr></thead><tbody>`)
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		var approve, reject []string
		for name, v := range rec.Votes {
			if v == models.Approve {
				approve = append(approve, name)
			} else {
				reject = append(reject, name)
			}
		}
		slices.Sort(approve)
		slices.Sort(reject)

		b.WriteString(`<tr class="`)
		if rec.Approved {
			b.WriteString(`approved`)
		} else {
			b.WriteString(`rejected`)
		}
		b.WriteString(`"><td>`)
		b.WriteString(strconv.Itoa(rec.Mission))
		b.WriteString(`.`)
		b.WriteString(strconv.Itoa(rec.Attempt))
		b.WriteString(`</td><td>`)
		b.WriteString(htmlpkg.EscapeString(rec.Leader))
		b.WriteString(`</td><td>`)
		b.WriteString(escapeJoin(rec.Team))
		b.WriteString(`</td><td>`)
		b.WriteString(escapeJoin(approve))
		b.WriteString(`</td><td>`)
		b.WriteString(escapeJoin(reject))
		b.WriteString(`</td></tr>`)
	}
	b.WriteString(`</tbody></table>`)
	return b.String()
}

// MessageLog generates HTML for table talk
func MessageLog(messages []models.Message) string {
	if len(messages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<ul class="message-log">`)
	for _, m := range messages {
		b.WriteString(`<li><span class="speaker">`)
		b.WriteString(htmlpkg.EscapeString(m.Speaker))
		b.WriteString(`</span> `)
		b.WriteString(htmlpkg.EscapeString(m.Text))
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul>`)
	return b.String()
}

func endReasonText(snap models.Snapshot) string {
	switch snap.EndReason {
	case models.EndRejectionLimit:
		return "Five teams in a row were rejected."
	case models.EndMissionsFailed:
		return "Three missions failed."
	case models.EndMerlinAssassinated:
		return "The assassin found Merlin: " + htmlpkg.EscapeString(snap.AssassinTarget) + "."
	case models.EndMerlinSurvived:
		return "Merlin survived the assassination attempt."
	}
	return htmlpkg.EscapeString(string(snap.EndReason))
}

func escapeJoin(names []string) string {
	escaped := make([]string, len(names))
	for i, n := range names {
		escaped[i] = htmlpkg.EscapeString(n)
	}
	return strings.Join(escaped, ", ")
}
