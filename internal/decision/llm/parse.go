package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aaronzipp/avalon-alone/internal/decision"
	"github.com/aaronzipp/avalon-alone/internal/models"
)

const maxSpeechLength = 120

// parseTeam accepts a JSON array anywhere in content and otherwise falls back
// to the candidate names mentioned in the text, in order of appearance.
func parseTeam(content string, size int, candidates []string) ([]string, error) {
	if start, end := strings.Index(content, "["), strings.LastIndex(content, "]"); start >= 0 && end > start {
		var team []string
		if err := json.Unmarshal([]byte(content[start:end+1]), &team); err == nil {
			for i := range team {
				team[i] = strings.TrimSpace(team[i])
			}
			if err := decision.ValidateTeam(team, size, candidates); err == nil {
				return team, nil
			}
		}
	}

	team := mentions(content, candidates)
	if len(team) > size {
		team = team[:size]
	}
	if err := decision.ValidateTeam(team, size, candidates); err != nil {
		return nil, fmt.Errorf("parse team from %q: %w", truncate(content), err)
	}
	return team, nil
}

func parseTeamVote(content string) (models.TeamVote, error) {
	switch firstKeyword(content, string(models.Approve), string(models.Reject)) {
	case string(models.Approve):
		return models.Approve, nil
	case string(models.Reject):
		return models.Reject, nil
	}
	return "", fmt.Errorf("%w: no team vote in %q", decision.ErrInvalidProposal, truncate(content))
}

func parseMissionVote(content string) (models.MissionVote, error) {
	switch firstKeyword(content, string(models.Success), string(models.Fail)) {
	case string(models.Success):
		return models.Success, nil
	case string(models.Fail):
		return models.Fail, nil
	}
	return "", fmt.Errorf("%w: no mission vote in %q", decision.ErrInvalidProposal, truncate(content))
}

func parseTarget(content string, candidates []string) (string, error) {
	found := mentions(content, candidates)
	if len(found) == 0 {
		return "", fmt.Errorf("%w: no candidate named in %q", decision.ErrInvalidProposal, truncate(content))
	}
	return found[0], nil
}

func parseSpeech(content string) (string, error) {
	line := strings.TrimSpace(strings.Trim(strings.TrimSpace(content), `"`))
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" {
		return "", fmt.Errorf("%w: empty speech", decision.ErrInvalidProposal)
	}
	if r := []rune(line); len(r) > maxSpeechLength {
		line = string(r[:maxSpeechLength])
	}
	return line, nil
}

// firstKeyword returns whichever keyword occurs earliest in content, case-insensitively.
func firstKeyword(content string, keywords ...string) string {
	lower := strings.ToLower(content)
	best, bestAt := "", -1
	for _, k := range keywords {
		if at := strings.Index(lower, k); at >= 0 && (bestAt < 0 || at < bestAt) {
			best, bestAt = k, at
		}
	}
	return best
}

// mentions lists distinct candidates named in content ordered by first
// occurrence. Longer names win overlapping matches so "p1" does not shadow "p10".
func mentions(content string, candidates []string) []string {
	type hit struct {
		name string
		at   int
	}
	byLength := append([]string(nil), candidates...)
	sort.SliceStable(byLength, func(i, j int) bool { return len(byLength[i]) > len(byLength[j]) })

	taken := make([]bool, len(content))
	var hits []hit
	for _, name := range byLength {
		if name == "" {
			continue
		}
		for from := 0; from < len(content); {
			at := strings.Index(content[from:], name)
			if at < 0 {
				break
			}
			at += from
			if !taken[at] {
				for i := at; i < at+len(name); i++ {
					taken[i] = true
				}
				hits = append(hits, hit{name, at})
				break
			}
			from = at + 1
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].at < hits[j].at })

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

func truncate(s string) string {
	if len(s) <= 80 {
		return s
	}
	return s[:80] + "..."
}
