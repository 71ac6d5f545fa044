package arena

import (
	"sync"
	"time"
	"duel_arena/internal/common"
	"duel_arena/internal/domain/model"
)

type RoomStatus string

const (
	StatusWaiting    RoomStatus = "waiting"
	StatusInProgress RoomStatus = "in_progress"
	StatusFinished   RoomStatus = "finished"
)

// Participant is a connection-scoped membership record. Order matters: the
// first joiner is the host (slot A), the second is slot B.
type Participant struct {
	ConnID   string `json:"-"`
	UserID   string `json:"id"`
	Name     string `json:"name"`
	Rating   int    `json:"rating"`
	TeamSide string `json:"team_side,omitempty"` // A or B, team rooms only
}

// Test is one normalized input/expected-output pair of the judging set.
type Test struct {
	Input          string
	ExpectedOutput string
}

// ProblemSet is the judging view of the chosen problem: hidden tests when the
// problem has any, example tests otherwise.
type ProblemSet struct {
	ProblemID    string
	Difficulty   model.ProblemDifficulty
	Tests        []Test
	TestBudgetMs int
}

type JudgedTest struct {
	Index  int    `json:"test_index"`
	Passed bool   `json:"passed"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
}

// Attempt is one judged submission.
type Attempt struct {
	SubmissionID string       `json:"submission_id"`
	PassedCount  int          `json:"passed_count"`
	TotalCount   int          `json:"total_count"`
	CompletedAt  time.Time    `json:"completed_at"`
	Tests        []JudgedTest `json:"-"`
}

func (a *Attempt) FullyAccepted() bool {
	return a != nil && a.TotalCount > 0 && a.PassedCount == a.TotalCount
}

// PlayerResult keeps a participant's judged history for winner decisions:
// the latest attempt, the best attempt and the attempt count.
type PlayerResult struct {
	Latest   *Attempt
	Best     *Attempt
	Attempts int
}

// Outcome is a room's terminal result.
type Outcome struct {
	WinnerUserID string // empty on draw or team result
	WinnerSide   string // A, B or draw
	Reason       string
}

type RoomConfig struct {
	TimeLimit  time.Duration
	Difficulty model.ProblemDifficulty // optional random-pick filter
	Team       bool
	RosterSize int // per team, team rooms only
}

// Room holds one match's ephemeral state. All mutation goes through methods
// holding mu; long judge calls must happen outside the lock.
type Room struct {
	ID     string
	Config RoomConfig

	mu           sync.Mutex
	status       RoomStatus
	participants []Participant
	roster       []Participant // membership frozen at start; settlement uses this
	problems     []*ProblemSet // one entry for 1v1 duels, several for team battles
	startedAt    time.Time
	results      map[string]*PlayerResult // userID -> results
	outcome      *Outcome
	timer        *time.Timer // forced-completion, armed while in_progress
}

func newRoom(id string, host Participant, cfg RoomConfig) *Room {
	if cfg.Team && host.TeamSide == "" {
		host.TeamSide = model.WinnerA
	}
	return &Room{
		ID:           id,
		Config:       cfg,
		status:       StatusWaiting,
		participants: []Participant{host},
		results:      make(map[string]*PlayerResult),
	}
}

func (r *Room) capacity() int {
	if r.Config.Team {
		return 2 * r.Config.RosterSize
	}
	return 2
}

// addParticipant enforces capacity and status. Called via Registry.Join.
func (r *Room) addParticipant(p Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusWaiting {
		return common.ErrMatchStarted
	}
	for _, existing := range r.participants {
		if existing.UserID == p.UserID {
			// Reconnect: refresh the connection binding, keep the slot.
			r.replaceConnLocked(existing.UserID, p.ConnID)
			return nil
		}
	}
	if len(r.participants) >= r.capacity() {
		return common.ErrRoomFull
	}
	if r.Config.Team && p.TeamSide == "" {
		p.TeamSide = r.smallerSideLocked()
	}
	r.participants = append(r.participants, p)
	return nil
}

func (r *Room) replaceConnLocked(userID, connID string) {
	for i := range r.participants {
		if r.participants[i].UserID == userID {
			r.participants[i].ConnID = connID
			return
		}
	}
}

func (r *Room) smallerSideLocked() string {
	var a, b int
	for _, p := range r.participants {
		switch p.TeamSide {
		case model.WinnerA:
			a++
		case model.WinnerB:
			b++
		}
	}
	if b < a {
		return model.WinnerB
	}
	return model.WinnerA
}

// removeParticipant drops the member bound to connID and reports what is left.
func (r *Room) removeParticipant(connID string) (left Participant, remaining int, status RoomStatus, found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.participants {
		if p.ConnID == connID {
			left = p
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			found = true
			break
		}
	}
	return left, len(r.participants), r.status, found
}

func (r *Room) Status() RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Room) Participants() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

func (r *Room) Host() (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.participants) == 0 {
		return Participant{}, false
	}
	return r.participants[0], true
}

// Problem returns the single judging set of a 1v1 room.
func (r *Room) Problem() *ProblemSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.problems) == 0 {
		return nil
	}
	return r.problems[0]
}

// ProblemByID resolves one of a team room's judging sets.
func (r *Room) ProblemByID(problemID string) *ProblemSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, set := range r.problems {
		if set.ProblemID == problemID {
			return set
		}
	}
	return nil
}

func (r *Room) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

func (r *Room) Outcome() *Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

func (r *Room) IsParticipant(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// SideOf reports the recorded team/slot side of a user: the explicit team
// side in team rooms, slot order (A/B) in 1v1 rooms.
func (r *Room) SideOf(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sideOfLocked(userID)
}

func (r *Room) sideOfLocked(userID string) string {
	members := r.participants
	if r.roster != nil {
		members = r.roster
	}
	for i, p := range members {
		if p.UserID != userID {
			continue
		}
		if r.Config.Team {
			return p.TeamSide
		}
		if i == 0 {
			return model.WinnerA
		}
		return model.WinnerB
	}
	return ""
}

// Start transitions waiting -> in_progress. The caller selects the problems
// first (no lock held during the repository read); Start re-checks state so a
// racing second start loses cleanly. onTimeout is armed for the configured
// time limit and must route to forced completion. Membership is frozen into
// the roster so settlement can score a participant who left mid-match.
func (r *Room) Start(requesterUserID string, sets []*ProblemSet, onTimeout func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.status {
	case StatusInProgress:
		return common.ErrMatchStarted
	case StatusFinished:
		return common.ErrMatchFinished
	}
	if len(r.participants) == 0 || r.participants[0].UserID != requesterUserID {
		return common.ErrNotHost
	}
	if len(r.participants) < r.minPlayersLocked() {
		return common.ErrNotEnoughPlayers
	}

	r.problems = sets
	r.roster = make([]Participant, len(r.participants))
	copy(r.roster, r.participants)
	r.startedAt = time.Now()
	r.status = StatusInProgress
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.Config.TimeLimit, onTimeout)
	return nil
}

// Roster is the membership frozen at start time; nil before the match starts.
func (r *Room) Roster() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.roster == nil {
		return nil
	}
	out := make([]Participant, len(r.roster))
	copy(out, r.roster)
	return out
}

func (r *Room) minPlayersLocked() int {
	if r.Config.Team {
		return 2 * r.Config.RosterSize
	}
	return 2
}

// CheckSubmittable validates a submit request before any judge work happens.
func (r *Room) CheckSubmittable(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.status {
	case StatusWaiting:
		return common.ErrMatchNotStarted
	case StatusFinished:
		return common.ErrMatchFinished
	}
	if !r.isParticipantLocked(userID) {
		return common.ErrNotParticipant
	}
	return nil
}

func (r *Room) isParticipantLocked(userID string) bool {
	for _, p := range r.participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// RecordResult stores a judged attempt for userID, overwriting the latest
// entry and keeping the best. It is the serialization point for the win
// check: two near-simultaneous full accepts resolve to whichever records
// first under the lock.
func (r *Room) RecordResult(userID string, attempt *Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == StatusFinished {
		return common.ErrMatchFinished
	}
	if r.status != StatusInProgress {
		return common.ErrMatchNotStarted
	}

	res, ok := r.results[userID]
	if !ok {
		res = &PlayerResult{}
		r.results[userID] = res
	}
	res.Latest = attempt
	res.Attempts++
	if betterAttempt(attempt, res.Best) {
		res.Best = attempt
	}
	return nil
}

func (r *Room) ResultOf(userID string) *PlayerResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[userID]
}

// betterAttempt reports whether a beats b as a participant's best attempt:
// more tests passed, earlier completion on a tie.
func betterAttempt(a, b *Attempt) bool {
	if b == nil {
		return a != nil
	}
	if a == nil {
		return false
	}
	if a.PassedCount != b.PassedCount {
		return a.PassedCount > b.PassedCount
	}
	return a.CompletedAt.Before(b.CompletedAt)
}

// DecideWinner applies the tie-break chain over both slots' best recorded
// attempts: full accept, passed count, fewer attempts, earlier completion.
// All criteria equal means a draw. 1v1 only; team rooms settle by score.
func (r *Room) DecideWinner() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.participants
	if r.roster != nil {
		members = r.roster
	}
	var a, b Participant
	if len(members) > 0 {
		a = members[0]
	}
	if len(members) > 1 {
		b = members[1]
	}

	switch compareResults(r.results[a.UserID], r.results[b.UserID]) {
	case 1:
		return Outcome{WinnerUserID: a.UserID, WinnerSide: model.WinnerA}
	case -1:
		return Outcome{WinnerUserID: b.UserID, WinnerSide: model.WinnerB}
	}
	return Outcome{WinnerSide: model.WinnerDraw}
}

// compareResults returns 1 if a strictly beats b on the first discriminating
// criterion, -1 for the reverse, 0 for a full tie.
func compareResults(a, b *PlayerResult) int {
	aAccepted := a != nil && a.Best.FullyAccepted()
	bAccepted := b != nil && b.Best.FullyAccepted()
	if aAccepted != bAccepted {
		if aAccepted {
			return 1
		}
		return -1
	}

	aPassed, bPassed := 0, 0
	if a != nil && a.Best != nil {
		aPassed = a.Best.PassedCount
	}
	if b != nil && b.Best != nil {
		bPassed = b.Best.PassedCount
	}
	if aPassed != bPassed {
		if aPassed > bPassed {
			return 1
		}
		return -1
	}

	aAttempts, bAttempts := 0, 0
	if a != nil {
		aAttempts = a.Attempts
	}
	if b != nil {
		bAttempts = b.Attempts
	}
	if aAttempts != bAttempts {
		if aAttempts < bAttempts {
			return 1
		}
		return -1
	}

	if a != nil && b != nil && a.Best != nil && b.Best != nil {
		if a.Best.CompletedAt.Before(b.Best.CompletedAt) {
			return 1
		}
		if b.Best.CompletedAt.Before(a.Best.CompletedAt) {
			return -1
		}
	}
	return 0
}

// Settle marks the room finished with the given outcome. It is idempotent:
// only the first caller wins, later calls (a late timer, a racing forfeit)
// are absorbed. The pending forced-completion timer is always cancelled.
func (r *Room) Settle(outcome Outcome) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.outcome != nil {
		return false
	}
	o := outcome
	r.outcome = &o
	r.status = StatusFinished
	return true
}

// StopTimer cancels the forced-completion timer without settling, used when a
// room is torn down mid-flight.
func (r *Room) StopTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// Summaries snapshots per-participant pass/fail tallies for broadcasts.
func (r *Room) Summaries() []PlayerSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.participants
	if r.roster != nil {
		members = r.roster
	}
	out := make([]PlayerSummary, 0, len(members))
	for _, p := range members {
		s := PlayerSummary{UserID: p.UserID, Name: p.Name}
		if res := r.results[p.UserID]; res != nil && res.Best != nil {
			s.PassedCount = res.Best.PassedCount
			s.TotalCount = res.Best.TotalCount
			t := res.Best.CompletedAt
			s.CompletedAt = &t
			s.Attempts = res.Attempts
		}
		out = append(out, s)
	}
	return out
}

type PlayerSummary struct {
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	PassedCount int        `json:"passed_count"`
	TotalCount  int        `json:"total_count"`
	Attempts    int        `json:"attempts"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
