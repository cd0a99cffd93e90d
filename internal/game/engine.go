package game

import (
	"maps"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/aaronzipp/avalon-alone/internal/models"
)

// Outcome describes the effect of an accepted operation
type Outcome struct {
	Status         models.OutcomeStatus  `json:"status"`
	Phase          models.Phase          `json:"phase"`
	RemainingVotes int                   `json:"remaining_votes,omitempty"`
	Approvals      int                   `json:"approvals,omitempty"`
	Rejections     int                   `json:"rejections,omitempty"`
	Result         *models.MissionResult `json:"result,omitempty"`
	Winner         models.Alignment      `json:"winner,omitempty"`
	Reason         models.EndReason      `json:"reason,omitempty"`
}

// Engine is the authoritative Avalon state machine.
//
// Every operation validates the phase and its preconditions first and either
// applies completely or returns a *Rejection without touching state. Engine is
// not safe for concurrent use; callers serialize access.
type Engine struct {
	players []models.Player
	seats   map[string]int
	plan    []models.MissionSlot
	rng     *rand.Rand
	now     func() time.Time

	phase        models.Phase
	mission      int
	leader       int
	team         []string
	teamVotes    map[string]models.TeamVote
	missionVotes map[string]models.MissionVote
	rejections   int
	results      []models.MissionResult
	teamHistory  []models.TeamVoteRecord
	visible      map[string][]string
	messages     []models.Message

	winner         models.Alignment
	endReason      models.EndReason
	assassinTarget string

	version uint64
}

// Option configures an Engine
type Option func(*Engine)

// WithRand sets the random source used to shuffle roles.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithClock overrides the clock used to timestamp messages.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine seats players in the given order and returns a game in the init phase.
func NewEngine(players []models.PlayerConfig, opts ...Option) (*Engine, error) {
	const op = "new engine"
	plan, err := MissionPlan(len(players))
	if err != nil {
		return nil, reject(op, CodeUnsupportedPlayerCount, "%d players, need %d to %d", len(players), MinPlayers, MaxPlayers)
	}

	e := &Engine{
		players: make([]models.Player, 0, len(players)),
		seats:   make(map[string]int, len(players)),
		plan:    plan,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:     time.Now,
		phase:   models.PhaseInit,
		mission: 1,
		visible: make(map[string][]string),
	}
	for i, p := range players {
		name := strings.TrimSpace(p.Name)
		if name == "" || len(name) > MaxNameLength {
			return nil, reject(op, CodeInvalidName, "seat %d: name must be 1 to %d characters", i, MaxNameLength)
		}
		for existing := range e.seats {
			if strings.EqualFold(existing, name) {
				return nil, reject(op, CodeDuplicateName, "%q is already seated", name)
			}
		}
		e.seats[name] = i
		e.players = append(e.players, models.Player{Name: name, Seat: i, Automated: p.Automated})
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Start moves a freshly created game into role assignment.
func (e *Engine) Start() (Outcome, error) {
	if err := e.expect("start", models.PhaseInit); err != nil {
		return Outcome{}, err
	}
	e.phase = models.PhaseRoleAssignment
	return e.commit(models.StatusStarted), nil
}

// AssignRoles deals the fixed role list for the table size at random and
// computes every player's private visibility.
func (e *Engine) AssignRoles() (Outcome, error) {
	if err := e.expect("assign roles", models.PhaseRoleAssignment); err != nil {
		return Outcome{}, err
	}
	roles, err := RolesFor(len(e.players))
	if err != nil {
		return Outcome{}, reject("assign roles", CodeUnsupportedPlayerCount, "%v", err)
	}
	e.rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })
	for i := range e.players {
		e.players[i].Role = roles[i]
	}
	for i, p := range e.players {
		e.visible[p.Name] = visibleTo(i, e.players)
	}
	e.phase = models.PhaseSecretInfo
	return e.commit(models.StatusRolesAssigned), nil
}

// RevealSecrets marks secret information as delivered and opens the first
// mission with seat 0 as leader.
func (e *Engine) RevealSecrets() (Outcome, error) {
	if err := e.expect("reveal secrets", models.PhaseSecretInfo); err != nil {
		return Outcome{}, err
	}
	e.leader = 0
	e.mission = 1
	e.phase = models.PhaseTeamSelection
	return e.commit(models.StatusSecretsRevealed), nil
}

// SelectTeam records the leader's proposal for the current mission.
func (e *Engine) SelectTeam(team []string) (Outcome, error) {
	const op = "select team"
	if err := e.expect(op, models.PhaseTeamSelection); err != nil {
		return Outcome{}, err
	}
	slot := e.slot()
	if len(team) != slot.TeamSize {
		return Outcome{}, reject(op, CodeWrongTeamSize, "mission %d needs %d players, got %d", slot.Index, slot.TeamSize, len(team))
	}
	seen := make(map[string]bool, len(team))
	for _, name := range team {
		if _, ok := e.seats[name]; !ok {
			return Outcome{}, reject(op, CodeUnknownPlayer, "%q is not seated", name)
		}
		if seen[name] {
			return Outcome{}, reject(op, CodeDuplicatePlayer, "%q listed twice", name)
		}
		seen[name] = true
	}
	e.team = slices.Clone(team)
	e.teamVotes = make(map[string]models.TeamVote, len(e.players))
	e.phase = models.PhaseTeamVote
	return e.commit(models.StatusTeamSelected), nil
}

// VoteTeam records one player's approve or reject on the proposed team and
// resolves the vote once every player has voted.
func (e *Engine) VoteTeam(player string, vote models.TeamVote) (Outcome, error) {
	const op = "vote team"
	if err := e.expect(op, models.PhaseTeamVote); err != nil {
		return Outcome{}, err
	}
	if !vote.Valid() {
		return Outcome{}, reject(op, CodeInvalidVote, "%q is not approve or reject", vote)
	}
	if _, ok := e.seats[player]; !ok {
		return Outcome{}, reject(op, CodeUnknownPlayer, "%q is not seated", player)
	}
	if _, voted := e.teamVotes[player]; voted {
		return Outcome{}, reject(op, CodeDuplicateVote, "%q already voted", player)
	}

	e.teamVotes[player] = vote
	remaining := len(e.players) - len(e.teamVotes)
	if remaining > 0 {
		out := e.commit(models.StatusVoteRecorded)
		out.RemainingVotes = remaining
		return out, nil
	}

	tally := CountTeamVotes(e.teamVotes, len(e.players))
	e.teamHistory = append(e.teamHistory, models.TeamVoteRecord{
		Mission:  e.mission,
		Attempt:  e.rejections + 1,
		Leader:   e.players[e.leader].Name,
		Team:     slices.Clone(e.team),
		Votes:    maps.Clone(e.teamVotes),
		Approved: tally.Approved,
	})

	var out Outcome
	switch {
	case tally.Approved:
		e.rejections = 0
		e.missionVotes = make(map[string]models.MissionVote, len(e.team))
		e.phase = models.PhaseMissionVote
		out = e.commit(models.StatusTeamApproved)
	case e.rejections+1 >= MaxRejections:
		e.rejections++
		e.finish(models.Evil, models.EndRejectionLimit)
		out = e.commit(models.StatusEvilWin)
	default:
		e.rejections++
		e.leader = NextSeat(e.leader, len(e.players))
		e.team = nil
		e.teamVotes = nil
		e.phase = models.PhaseTeamSelection
		out = e.commit(models.StatusTeamRejected)
	}
	out.Approvals = tally.Approvals
	out.Rejections = tally.Rejections
	return out, nil
}

// VoteMission records a team member's success or fail and resolves the
// mission once every team member has voted.
func (e *Engine) VoteMission(player string, vote models.MissionVote) (Outcome, error) {
	const op = "vote mission"
	if err := e.expect(op, models.PhaseMissionVote); err != nil {
		return Outcome{}, err
	}
	if !vote.Valid() {
		return Outcome{}, reject(op, CodeInvalidVote, "%q is not success or fail", vote)
	}
	if _, ok := e.seats[player]; !ok {
		return Outcome{}, reject(op, CodeUnknownPlayer, "%q is not seated", player)
	}
	if !slices.Contains(e.team, player) {
		return Outcome{}, reject(op, CodeNotOnTeam, "%q is not on mission %d", player, e.mission)
	}
	if _, voted := e.missionVotes[player]; voted {
		return Outcome{}, reject(op, CodeDuplicateVote, "%q already voted", player)
	}

	e.missionVotes[player] = vote
	remaining := len(e.team) - len(e.missionVotes)
	if remaining > 0 {
		out := e.commit(models.StatusVoteRecorded)
		out.RemainingVotes = remaining
		return out, nil
	}

	tally := CountMissionVotes(e.missionVotes, e.slot().FailsNeeded)
	result := models.MissionResult{
		Mission:      e.mission,
		Team:         slices.Clone(e.team),
		Success:      tally.Success,
		FailCount:    tally.Fails,
		SuccessCount: tally.Successes,
	}
	e.results = append(e.results, result)

	var out Outcome
	successes, failures := CountResults(e.results)
	switch {
	case failures >= MissionsToWin:
		e.finish(models.Evil, models.EndMissionsFailed)
		out = e.commit(models.StatusEvilWin)
	case successes >= MissionsToWin:
		e.phase = models.PhaseAssassination
		out = e.commit(models.StatusGoodMissionWin)
	default:
		e.nextRound()
		out = e.commit(models.StatusMissionCompleted)
	}
	out.Result = &result
	return out, nil
}

// Assassinate resolves the assassin's single guess. Only good players are
// valid targets.
func (e *Engine) Assassinate(target string) (Outcome, error) {
	const op = "assassinate"
	if err := e.expect(op, models.PhaseAssassination); err != nil {
		return Outcome{}, err
	}
	seat, ok := e.seats[target]
	if !ok {
		return Outcome{}, reject(op, CodeInvalidTarget, "%q is not seated", target)
	}
	if AlignmentOf(e.players[seat].Role) != models.Good {
		return Outcome{}, reject(op, CodeInvalidTarget, "%q is not a good player", target)
	}

	e.assassinTarget = target
	if e.players[seat].Role == models.RoleMerlin {
		e.finish(models.Evil, models.EndMerlinAssassinated)
		return e.commit(models.StatusEvilWin), nil
	}
	e.finish(models.Good, models.EndMerlinSurvived)
	return e.commit(models.StatusGoodWin), nil
}

// Say appends a line of table talk from player.
func (e *Engine) Say(player, text string) (Outcome, error) {
	const op = "say"
	if e.phase.Terminal() {
		return Outcome{}, reject(op, CodeGameOver, "game already ended")
	}
	if _, ok := e.seats[player]; !ok {
		return Outcome{}, reject(op, CodeUnknownPlayer, "%q is not seated", player)
	}
	text = strings.TrimSpace(text)
	if text == "" || len(text) > MaxMessageLength {
		return Outcome{}, reject(op, CodeInvalidMessage, "message must be 1 to %d characters", MaxMessageLength)
	}
	e.messages = append(e.messages, models.Message{
		Speaker: player,
		Text:    text,
		Phase:   e.phase,
		At:      e.now(),
	})
	return e.commit(models.StatusMessageRecorded), nil
}

// Phase returns the current phase.
func (e *Engine) Phase() models.Phase { return e.phase }

// Version increases by one on every accepted operation.
func (e *Engine) Version() uint64 { return e.version }

// PlayerCount returns the number of seats.
func (e *Engine) PlayerCount() int { return len(e.players) }

// Assignments returns every seat including its role. It is the privileged
// view used by automated seats and the event log, never by observers.
func (e *Engine) Assignments() []models.Player {
	return slices.Clone(e.players)
}

// Player returns the seat held by name.
func (e *Engine) Player(name string) (models.Player, bool) {
	seat, ok := e.seats[name]
	if !ok {
		return models.Player{}, false
	}
	return e.players[seat], true
}

// Snapshot returns the public view of the game. Roles are withheld until the
// game has ended.
func (e *Engine) Snapshot() models.Snapshot {
	players := slices.Clone(e.players)
	if !e.phase.Terminal() {
		for i := range players {
			players[i].Role = ""
		}
	}
	successes, failures := CountResults(e.results)

	results := make([]models.MissionResult, len(e.results))
	for i, r := range e.results {
		r.Team = slices.Clone(r.Team)
		results[i] = r
	}
	history := make([]models.TeamVoteRecord, len(e.teamHistory))
	for i, h := range e.teamHistory {
		h.Team = slices.Clone(h.Team)
		h.Votes = maps.Clone(h.Votes)
		history[i] = h
	}

	return models.Snapshot{
		Phase:          e.phase,
		Players:        players,
		Mission:        e.mission,
		Slot:           e.slot(),
		Plan:           slices.Clone(e.plan),
		LeaderIndex:    e.leader,
		Leader:         e.players[e.leader].Name,
		Team:           cloneOrEmpty(e.team),
		TeamVoters:     sortedKeys(e.teamVotes),
		MissionVoters:  sortedKeys(e.missionVotes),
		Rejections:     e.rejections,
		Results:        results,
		TeamVotes:      history,
		Successes:      successes,
		Failures:       failures,
		Winner:         e.winner,
		EndReason:      e.endReason,
		AssassinTarget: e.assassinTarget,
		Messages:       slices.Clone(e.messages),
	}
}

// ViewFor returns the public snapshot plus the private knowledge of player.
func (e *Engine) ViewFor(player string) (models.PlayerView, error) {
	seat, ok := e.seats[player]
	if !ok {
		return models.PlayerView{}, reject("view", CodeUnknownPlayer, "%q is not seated", player)
	}
	p := e.players[seat]
	return models.PlayerView{
		Snapshot: e.Snapshot(),
		Self: models.SecretInfo{
			Name:      p.Name,
			Seat:      p.Seat,
			Role:      p.Role,
			Alignment: AlignmentOf(p.Role),
			Visible:   cloneOrEmpty(e.visible[p.Name]),
		},
	}, nil
}

func (e *Engine) expect(op string, want models.Phase) error {
	if e.phase.Terminal() {
		return reject(op, CodeGameOver, "%s already won", e.winner)
	}
	if e.phase != want {
		return reject(op, CodeWrongPhase, "phase is %s, want %s", e.phase, want)
	}
	return nil
}

func (e *Engine) slot() models.MissionSlot {
	return e.plan[e.mission-1]
}

func (e *Engine) nextRound() {
	e.mission++
	e.leader = NextSeat(e.leader, len(e.players))
	e.team = nil
	e.teamVotes = nil
	e.missionVotes = nil
	e.rejections = 0
	e.phase = models.PhaseTeamSelection
}

func (e *Engine) finish(winner models.Alignment, reason models.EndReason) {
	e.winner = winner
	e.endReason = reason
	e.phase = models.PhaseTerminal
}

func (e *Engine) commit(status models.OutcomeStatus) Outcome {
	e.version++
	return Outcome{Status: status, Phase: e.phase, Winner: e.winner, Reason: e.endReason}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
