package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"
	"duel_arena/internal/app/judge"
	"duel_arena/internal/common"
	"duel_arena/internal/domain/model"
	"duel_arena/internal/domain/repository"
)

// In-memory repository doubles. They hold just enough state for the
// orchestration paths under test.

type memUserRepository struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserRepository(users ...*model.User) *memUserRepository {
	r := &memUserRepository{users: make(map[string]*model.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return common.ErrConflict
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUserRepository) ApplyDuelResult(ctx context.Context, userID string, delta repository.DuelRecordDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.Rating += delta.RatingDelta
	u.DuelWins += delta.Wins
	u.DuelLosses += delta.Losses
	u.DuelDraws += delta.Draws
	return nil
}

func (r *memUserRepository) ApplyBattleResult(ctx context.Context, userID string, won bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.TeamBattlesPlayed++
	if won {
		u.TeamBattlesWon++
	}
	return nil
}

type memProblemRepository struct {
	mu       sync.Mutex
	problems []*model.Problem
	examples map[string][]model.Example
	hidden   map[string][]model.TestCase
	sampleAt int
}

func newMemProblemRepository() *memProblemRepository {
	return &memProblemRepository{
		examples: make(map[string][]model.Example),
		hidden:   make(map[string][]model.TestCase),
	}
}

func (r *memProblemRepository) add(p *model.Problem, examples []model.Example, hidden []model.TestCase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.problems = append(r.problems, p)
	r.examples[p.ID] = examples
	r.hidden[p.ID] = hidden
}

func (r *memProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	r.add(p, nil, nil)
	return nil
}

func (r *memProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.problems {
		if p.ID == id {
			copied := *p
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.problems {
		if p.Slug == slug {
			copied := *p
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

// SampleRandomProblem rotates through the stored problems so callers that
// sample repeatedly see distinct ones.
func (r *memProblemRepository) SampleRandomProblem(ctx context.Context, difficulty model.ProblemDifficulty) (*model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < len(r.problems); i++ {
		p := r.problems[r.sampleAt%len(r.problems)]
		r.sampleAt++
		if difficulty == "" || p.Difficulty == difficulty {
			copied := *p
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memProblemRepository) AddExamplesToProblem(ctx context.Context, tx *sql.Tx, problemID string, examples []model.Example) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.examples[problemID] = append(r.examples[problemID], examples...)
	return nil
}

func (r *memProblemRepository) GetExamplesByProblemID(ctx context.Context, problemID string) ([]model.Example, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.examples[problemID], nil
}

func (r *memProblemRepository) AddTestCasesToProblem(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidden[problemID] = append(r.hidden[problemID], testCases...)
	return nil
}

func (r *memProblemRepository) GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hidden[problemID], nil
}

type memSubmissionRepository struct {
	mu   sync.Mutex
	subs map[string]*model.Submission
}

func newMemSubmissionRepository() *memSubmissionRepository {
	return &memSubmissionRepository{subs: make(map[string]*model.Submission)}
}

func (r *memSubmissionRepository) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *sub
	r.subs[sub.ID] = &copied
	return nil
}

func (r *memSubmissionRepository) UpdateSubmissionResult(ctx context.Context, id string, status model.SubmissionStatus, passed, total int, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return common.ErrNotFound
	}
	sub.Status = status
	sub.PassedCount = passed
	sub.TotalCount = total
	sub.CompletedAt = &completedAt
	return nil
}

func (r *memSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (r *memSubmissionRepository) ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Submission
	for _, sub := range r.subs {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

type memMatchRepository struct {
	mu      sync.Mutex
	duels   []*model.Duel
	battles map[string]*model.TeamBattle

	createDuelErr   error
	createBattleErr error
}

func newMemMatchRepository() *memMatchRepository {
	return &memMatchRepository{battles: make(map[string]*model.TeamBattle)}
}

func (r *memMatchRepository) CreateDuel(ctx context.Context, duel *model.Duel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createDuelErr != nil {
		return r.createDuelErr
	}
	copied := *duel
	r.duels = append(r.duels, &copied)
	return nil
}

func (r *memMatchRepository) ListRecentDuels(ctx context.Context, limit int) ([]model.Duel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Duel
	for i := len(r.duels) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *r.duels[i])
	}
	return out, nil
}

func (r *memMatchRepository) ListDuelsByUser(ctx context.Context, userID string, limit int) ([]model.Duel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Duel
	for i := len(r.duels) - 1; i >= 0 && len(out) < limit; i-- {
		if r.duels[i].PlayerAID == userID || r.duels[i].PlayerBID == userID {
			out = append(out, *r.duels[i])
		}
	}
	return out, nil
}

func (r *memMatchRepository) CreateTeamBattle(ctx context.Context, battle *model.TeamBattle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createBattleErr != nil {
		return r.createBattleErr
	}
	copied := *battle
	r.battles[battle.ID] = &copied
	return nil
}

func (r *memMatchRepository) UpdateTeamBattle(ctx context.Context, battle *model.TeamBattle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *battle
	r.battles[battle.ID] = &copied
	return nil
}

func (r *memMatchRepository) FindTeamBattleByID(ctx context.Context, id string) (*model.TeamBattle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	battle, ok := r.battles[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *battle
	return &copied, nil
}

func (r *memMatchRepository) duelCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.duels)
}

func (r *memMatchRepository) lastDuel() *model.Duel {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.duels) == 0 {
		return nil
	}
	copied := *r.duels[len(r.duels)-1]
	return &copied
}

// scriptedJudge passes a test when the submitted source contains "pass" or
// the per-test script says so. It also counts invocations.
type scriptedJudge struct {
	mu    sync.Mutex
	calls int
	// verdict maps stdin -> stdout; missing entries echo "wrong".
	verdict map[string]string
}

func newScriptedJudge() *scriptedJudge {
	return &scriptedJudge{verdict: make(map[string]string)}
}

func (j *scriptedJudge) Execute(ctx context.Context, source string, languageID int, stdin string) judge.Result {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()

	if strings.Contains(source, "crash") {
		return judge.Result{Status: "Runtime Error", Stderr: "boom"}
	}
	if out, ok := j.verdict[stdin]; ok {
		return judge.Result{Status: "Accepted", Stdout: out}
	}
	if strings.Contains(source, "pass") {
		return judge.Result{Status: "Accepted", Stdout: "expected"}
	}
	return judge.Result{Status: "Accepted", Stdout: "wrong"}
}

func (j *scriptedJudge) callCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(ctx context.Context, userID string) bool { return true }

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, userID string) bool { return false }

// recordingBroadcaster captures every event for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

type broadcastEvent struct {
	RoomID  string
	Event   string
	Payload interface{}
}

func (b *recordingBroadcaster) BroadcastToRoom(roomID string, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{RoomID: roomID, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) eventsOfType(event string) []broadcastEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []broadcastEvent
	for _, e := range b.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
