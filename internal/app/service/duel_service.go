package service

import (
	"context"
	"log"
	"strings"
	"time"
	"duel_arena/internal/app/judge"
	"duel_arena/internal/common"
	"duel_arena/internal/domain/arena"
	"duel_arena/internal/domain/model"
	"duel_arena/internal/domain/repository"

	"github.com/google/uuid"
)

// Identity is the authenticated caller of a room operation, resolved from JWT
// claims (plus a rating lookup) by the gateway.
type Identity struct {
	UserID   string
	Username string
	Rating   int
}

// Limiter gates submissions per user. Implemented by SubmitLimiter.
type Limiter interface {
	Allow(ctx context.Context, userID string) bool
}

type DuelConfig struct {
	DefaultTimeLimit time.Duration
	DefaultBudgetMs  int // per-test judge budget when the problem has none
	GracePeriod      time.Duration // finished rooms linger this long for late reads
	KFactor          int
	RosterSize       int // per team
	BattleProblems   int // problems sampled for a team battle
}

// DuelService orchestrates the match state machine: room lifecycle, match
// start, submission judging, winner decision and settlement. It is the only
// writer of room outcomes; everything durable goes through the repositories.
type DuelService struct {
	registry       *arena.Registry
	problemRepo    repository.ProblemRepository
	submissionRepo repository.SubmissionRepository
	userRepo       repository.UserRepository
	matchRepo      repository.MatchRepository
	battles        *BattleService
	judge          judge.Client
	limiter        Limiter
	broadcaster    Broadcaster
	cfg            DuelConfig
}

func NewDuelService(
	registry *arena.Registry,
	problemRepo repository.ProblemRepository,
	submissionRepo repository.SubmissionRepository,
	userRepo repository.UserRepository,
	matchRepo repository.MatchRepository,
	battles *BattleService,
	judgeClient judge.Client,
	limiter Limiter,
	broadcaster Broadcaster,
	cfg DuelConfig,
) *DuelService {
	if cfg.DefaultTimeLimit <= 0 {
		cfg.DefaultTimeLimit = 10 * time.Minute
	}
	if cfg.DefaultBudgetMs <= 0 {
		cfg.DefaultBudgetMs = 30000
	}
	if cfg.KFactor <= 0 {
		cfg.KFactor = 30
	}
	if cfg.RosterSize <= 0 {
		cfg.RosterSize = 3
	}
	if cfg.BattleProblems <= 0 {
		cfg.BattleProblems = 3
	}
	return &DuelService{
		registry:       registry,
		problemRepo:    problemRepo,
		submissionRepo: submissionRepo,
		userRepo:       userRepo,
		matchRepo:      matchRepo,
		battles:        battles,
		judge:          judgeClient,
		limiter:        limiter,
		broadcaster:    broadcaster,
		cfg:            cfg,
	}
}

type CreateRoomParams struct {
	RoomID           string // optional; generated when empty
	TimeLimitSeconds int
	Difficulty       string // optional random-pick filter
	Team             bool
}

func (s *DuelService) CreateRoom(connID string, id Identity, params CreateRoomParams) (*arena.Room, error) {
	timeLimit := s.cfg.DefaultTimeLimit
	if params.TimeLimitSeconds > 0 {
		timeLimit = time.Duration(params.TimeLimitSeconds) * time.Second
	}
	cfg := arena.RoomConfig{
		TimeLimit:  timeLimit,
		Difficulty: model.ProblemDifficulty(params.Difficulty),
		Team:       params.Team,
		RosterSize: s.cfg.RosterSize,
	}

	room, err := s.registry.Create(params.RoomID, arena.Participant{
		ConnID: connID,
		UserID: id.UserID,
		Name:   id.Username,
		Rating: id.Rating,
	}, cfg)
	if err != nil {
		return nil, err
	}

	log.Printf("INFO: room %s created by %s (team=%v)", room.ID, id.Username, params.Team)
	s.broadcastRoomUpdate(room)
	return room, nil
}

func (s *DuelService) JoinRoom(connID string, id Identity, roomID string) (*arena.Room, error) {
	room, err := s.registry.Join(roomID, arena.Participant{
		ConnID: connID,
		UserID: id.UserID,
		Name:   id.Username,
		Rating: id.Rating,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("INFO: %s joined room %s", id.Username, roomID)
	s.broadcastRoomUpdate(room)
	return room, nil
}

// LeaveRoom handles both explicit leaves and dropped connections. Leaving an
// in-progress 1v1 forfeits: the remaining player wins. A fully abandoned match
// still settles (as a draw) so the record is written.
func (s *DuelService) LeaveRoom(connID string) {
	room, left, remaining, status, ok := s.registry.Leave(connID)
	if !ok {
		return
	}
	log.Printf("INFO: %s left room %s (%d remaining)", left.Name, room.ID, remaining)

	if status != arena.StatusInProgress {
		if remaining > 0 {
			s.broadcastRoomUpdate(room)
		}
		return
	}

	if room.Config.Team {
		// One roster member dropping does not end a team battle; an empty
		// room does.
		if remaining == 0 {
			s.finishTeamBattle(room, model.ReasonOpponentLeft)
		} else {
			s.broadcastRoomUpdate(room)
		}
		return
	}

	switch remaining {
	case 1:
		winner := room.Participants()[0]
		s.settle(room, arena.Outcome{
			WinnerUserID: winner.UserID,
			WinnerSide:   room.SideOf(winner.UserID),
			Reason:       model.ReasonOpponentLeft,
		})
	case 0:
		s.settle(room, arena.Outcome{
			WinnerSide: model.WinnerDraw,
			Reason:     model.ReasonOpponentLeft,
		})
	}
}

// Start moves a waiting room into in_progress: the host picks a problem (or
// gets a random one), the judging set is built from hidden tests, and the
// forced-completion timer is armed. Problems load before the room transitions
// so a failed lookup leaves the room joinable.
func (s *DuelService) Start(ctx context.Context, roomID, userID, problemID string) (*arena.Room, []model.ProblemPublicView, error) {
	room := s.registry.Get(roomID)
	if room == nil {
		return nil, nil, common.ErrRoomNotFound
	}
	if !room.IsParticipant(userID) {
		return nil, nil, common.ErrNotParticipant
	}

	problems, sets, err := s.selectProblems(ctx, room, problemID)
	if err != nil {
		return nil, nil, err
	}

	if err := room.Start(userID, sets, func() { s.handleTimeout(roomID) }); err != nil {
		return nil, nil, err
	}

	if room.Config.Team {
		if _, err := s.battles.StartBattle(ctx, room, problems); err != nil {
			log.Printf("ERROR: room %s started without a durable battle record: %v", roomID, err)
			s.broadcaster.BroadcastToRoom(room.ID, EventError, map[string]interface{}{
				"message": "battle record could not be saved; scores will not persist",
			})
		}
	}

	views := make([]model.ProblemPublicView, 0, len(problems))
	for _, p := range problems {
		views = append(views, p.PublicView())
	}
	log.Printf("INFO: room %s started with %d problem(s)", roomID, len(problems))
	s.broadcaster.BroadcastToRoom(room.ID, EventMatchStarted, map[string]interface{}{
		"problems":           views,
		"started_at":         room.StartedAt(),
		"time_limit_seconds": int(room.Config.TimeLimit.Seconds()),
	})
	return room, views, nil
}

// selectProblems loads the match problems and builds their judging sets. 1v1
// rooms get one problem (explicit id or random); team rooms get a sampled set.
func (s *DuelService) selectProblems(ctx context.Context, room *arena.Room, problemID string) ([]*model.Problem, []*arena.ProblemSet, error) {
	count := 1
	if room.Config.Team {
		count = s.cfg.BattleProblems
	}

	var problems []*model.Problem
	if problemID != "" {
		p, err := s.problemRepo.FindProblemByID(ctx, problemID)
		if err != nil {
			return nil, nil, common.Errorf("problem not found: %w", err)
		}
		problems = append(problems, p)
	}

	seen := make(map[string]bool, count)
	for _, p := range problems {
		seen[p.ID] = true
	}
	for attempts := 0; len(problems) < count && attempts < count*5; attempts++ {
		p, err := s.problemRepo.SampleRandomProblem(ctx, room.Config.Difficulty)
		if err != nil {
			return nil, nil, common.Errorf("failed to pick a problem: %w", err)
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		problems = append(problems, p)
	}
	if len(problems) < count {
		return nil, nil, common.Errorf("not enough distinct problems available: %w", common.ErrNotFound)
	}

	sets := make([]*arena.ProblemSet, 0, len(problems))
	for _, p := range problems {
		set, err := s.buildJudgingSet(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		sets = append(sets, set)
	}
	return problems, sets, nil
}

// buildJudgingSet prefers hidden test cases; a problem without any falls back
// to its examples. Expected outputs are normalized once here so every later
// comparison is normalized-vs-normalized.
func (s *DuelService) buildJudgingSet(ctx context.Context, p *model.Problem) (*arena.ProblemSet, error) {
	examples, err := s.problemRepo.GetExamplesByProblemID(ctx, p.ID)
	if err != nil {
		return nil, common.Errorf("failed to load examples for problem %s: %w", p.ID, err)
	}
	p.ExampleTests = examples

	hidden, err := s.problemRepo.GetTestCasesByProblemID(ctx, p.ID)
	if err != nil {
		return nil, common.Errorf("failed to load test cases for problem %s: %w", p.ID, err)
	}
	p.HiddenTests = hidden

	var tests []arena.Test
	for _, tc := range hidden {
		tests = append(tests, arena.Test{Input: tc.Input, ExpectedOutput: judge.Clean(tc.ExpectedOutput)})
	}
	if len(tests) == 0 {
		for _, ex := range examples {
			tests = append(tests, arena.Test{Input: ex.Input, ExpectedOutput: judge.Clean(ex.ExpectedOutput)})
		}
	}
	if len(tests) == 0 {
		return nil, common.Errorf("problem %s has no runnable tests: %w", p.ID, common.ErrBadRequest)
	}

	budget := p.TimeLimitMs
	if budget <= 0 {
		budget = s.cfg.DefaultBudgetMs
	}
	return &arena.ProblemSet{
		ProblemID:    p.ID,
		Difficulty:   p.Difficulty,
		Tests:        tests,
		TestBudgetMs: budget,
	}, nil
}

type SubmitParams struct {
	RoomID    string
	ProblemID string // team battles only; 1v1 rooms have a single problem
	Code      string
	Language  string
	Stdin     string // used for tests that carry no input of their own
}

type SubmitResult struct {
	SubmissionID string             `json:"submission_id"`
	Accepted     bool               `json:"accepted"`
	PassedCount  int                `json:"passed_count"`
	TotalCount   int                `json:"total_count"`
	PointsGained int                `json:"points_gained,omitempty"` // team battles
	Tests        []arena.JudgedTest `json:"tests"`
}

// Submit judges one submission against the full test set. The room lock is
// never held across judge calls; RecordResult re-acquires it and is where a
// racing pair of full accepts gets ordered. A judge backend failure counts as
// a failed test, never as an error surfaced to the caller.
func (s *DuelService) Submit(ctx context.Context, userID string, params SubmitParams) (*SubmitResult, error) {
	room := s.registry.Get(params.RoomID)
	if room == nil {
		return nil, common.ErrRoomNotFound
	}
	if err := room.CheckSubmittable(userID); err != nil {
		return nil, err
	}
	if !s.limiter.Allow(ctx, userID) {
		return nil, common.ErrTooFrequent
	}

	var set *arena.ProblemSet
	if room.Config.Team {
		set = room.ProblemByID(params.ProblemID)
	} else {
		set = room.Problem()
	}
	if set == nil {
		return nil, common.Errorf("no such problem in this match: %w", common.ErrNotFound)
	}

	code := judge.Clean(params.Code)
	if code == "" {
		return nil, common.Errorf("empty submission: %w", common.ErrBadRequest)
	}

	sub := &model.Submission{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProblemID:  set.ProblemID,
		RoomID:     room.ID,
		Code:       code,
		Language:   strings.ToLower(strings.TrimSpace(params.Language)),
		Status:     model.StatusInFlight,
		TotalCount: len(set.Tests),
		CreatedAt:  time.Now(),
	}
	if err := s.submissionRepo.CreateSubmission(ctx, sub); err != nil {
		return nil, common.Errorf("failed to record submission: %w", err)
	}

	languageID := judge.LanguageID(sub.Language)
	judged := make([]arena.JudgedTest, 0, len(set.Tests))
	passed := 0
	for i, test := range set.Tests {
		input := test.Input
		if input == "" {
			input = params.Stdin
		}
		tctx, cancel := context.WithTimeout(ctx, time.Duration(set.TestBudgetMs)*time.Millisecond)
		res := s.judge.Execute(tctx, code, languageID, input)
		cancel()

		ok := !res.Failed() && judge.OutputsEqual(res.Stdout, test.ExpectedOutput)
		if ok {
			passed++
		}
		judged = append(judged, arena.JudgedTest{
			Index:  i,
			Passed: ok,
			Stdout: judge.Clean(res.Stdout),
			Stderr: firstNonEmpty(res.CompileOutput, res.Stderr),
		})
	}

	completedAt := time.Now()
	accepted := passed == len(set.Tests)
	status := model.StatusRejected
	if accepted {
		status = model.StatusAccepted
	}
	if err := s.submissionRepo.UpdateSubmissionResult(ctx, sub.ID, status, passed, len(set.Tests), completedAt); err != nil {
		log.Printf("ERROR: failed to store result for submission %s: %v", sub.ID, err)
	}

	attempt := &arena.Attempt{
		SubmissionID: sub.ID,
		PassedCount:  passed,
		TotalCount:   len(set.Tests),
		CompletedAt:  completedAt,
		Tests:        judged,
	}
	if err := room.RecordResult(userID, attempt); err != nil {
		// The match settled while this submission was judging.
		return nil, err
	}

	s.broadcaster.BroadcastToRoom(room.ID, EventSubmissionProgress, map[string]interface{}{
		"user_id":      userID,
		"problem_id":   set.ProblemID,
		"passed_count": passed,
		"total_count":  len(set.Tests),
		"accepted":     accepted,
	})

	result := &SubmitResult{
		SubmissionID: sub.ID,
		Accepted:     accepted,
		PassedCount:  passed,
		TotalCount:   len(set.Tests),
		Tests:        judged,
	}

	if room.Config.Team {
		result.PointsGained = s.battles.ApplySubmission(ctx, room.ID, userID, set.ProblemID, accepted, completedAt)
	} else if accepted {
		s.settle(room, arena.Outcome{
			WinnerUserID: userID,
			WinnerSide:   room.SideOf(userID),
			Reason:       model.ReasonFirstAccepted,
		})
	}
	return result, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// handleTimeout is the forced-completion path, fired by the room timer.
func (s *DuelService) handleTimeout(roomID string) {
	room := s.registry.Get(roomID)
	if room == nil {
		return
	}
	log.Printf("INFO: room %s hit its time limit", roomID)

	if room.Config.Team {
		s.finishTeamBattle(room, model.ReasonTimeUp)
		return
	}
	outcome := room.DecideWinner()
	outcome.Reason = model.ReasonTimeUp
	s.settle(room, outcome)
}

// settle finalizes a 1v1 room exactly once. Room.Settle is the idempotence
// gate: the loser of a settle race (late timer, double forfeit) does nothing.
// Persistence failures are logged, never propagated; the in-memory result is
// already authoritative for the connected players.
func (s *DuelService) settle(room *arena.Room, outcome arena.Outcome) {
	if !room.Settle(outcome) {
		return
	}

	ctx := context.Background()
	roster := room.Roster()
	if len(roster) >= 2 {
		problemID := ""
		if set := room.Problem(); set != nil {
			problemID = set.ProblemID
		}
		duel := &model.Duel{
			ID:              uuid.NewString(),
			RoomID:          room.ID,
			PlayerAID:       roster[0].UserID,
			PlayerBID:       roster[1].UserID,
			ProblemID:       problemID,
			Winner:          outcome.WinnerSide,
			Reason:          outcome.Reason,
			DurationSeconds: int(time.Since(room.StartedAt()).Seconds()),
			CreatedAt:       time.Now(),
		}
		if err := s.matchRepo.CreateDuel(ctx, duel); err != nil {
			log.Printf("ERROR: failed to persist duel for room %s: %v", room.ID, err)
			s.broadcaster.BroadcastToRoom(room.ID, EventError, map[string]interface{}{
				"message": "match result could not be saved",
			})
		}
		s.applyRatings(ctx, roster[0], roster[1], outcome.WinnerSide)
	}

	log.Printf("INFO: room %s settled: winner=%s reason=%s", room.ID, outcome.WinnerSide, outcome.Reason)
	s.broadcaster.BroadcastToRoom(room.ID, EventMatchFinished, map[string]interface{}{
		"winner_user_id": outcome.WinnerUserID,
		"winner":         outcome.WinnerSide,
		"reason":         outcome.Reason,
		"players":        room.Summaries(),
	})
	s.scheduleTeardown(room.ID)
}

// applyRatings reads both ratings at settlement time (not the stale join-time
// snapshots) and applies antisymmetric Elo deltas plus win/loss/draw counters
// in one increment per user.
func (s *DuelService) applyRatings(ctx context.Context, a, b arena.Participant, winnerSide string) {
	ratingA, ratingB := a.Rating, b.Rating
	if u, err := s.userRepo.FindByID(ctx, a.UserID); err == nil {
		ratingA = u.Rating
	}
	if u, err := s.userRepo.FindByID(ctx, b.UserID); err == nil {
		ratingB = u.Rating
	}

	deltaA, deltaB := EloDeltas(ratingA, ratingB, winnerSide, s.cfg.KFactor)

	recordA := repository.DuelRecordDelta{RatingDelta: deltaA}
	recordB := repository.DuelRecordDelta{RatingDelta: deltaB}
	switch winnerSide {
	case model.WinnerA:
		recordA.Wins, recordB.Losses = 1, 1
	case model.WinnerB:
		recordB.Wins, recordA.Losses = 1, 1
	default:
		recordA.Draws, recordB.Draws = 1, 1
	}

	if err := s.userRepo.ApplyDuelResult(ctx, a.UserID, recordA); err != nil {
		log.Printf("ERROR: failed to apply duel result for user %s: %v", a.UserID, err)
	}
	if err := s.userRepo.ApplyDuelResult(ctx, b.UserID, recordB); err != nil {
		log.Printf("ERROR: failed to apply duel result for user %s: %v", b.UserID, err)
	}
}

// finishTeamBattle finalizes a team room. BattleService.Finish computes the
// score-based winner and is itself idempotent; Room.Settle then gates the
// broadcast the same way it does for 1v1 rooms.
func (s *DuelService) finishTeamBattle(room *arena.Room, reason string) {
	battle := s.battles.Finish(context.Background(), room.ID)
	if battle == nil || battle.Winner == nil {
		// No durable battle; still close the room.
		room.Settle(arena.Outcome{WinnerSide: model.WinnerDraw, Reason: reason})
		s.scheduleTeardown(room.ID)
		return
	}
	if !room.Settle(arena.Outcome{WinnerSide: *battle.Winner, Reason: reason}) {
		return
	}

	log.Printf("INFO: team battle %s settled: winner=%s reason=%s", battle.ID, *battle.Winner, reason)
	s.broadcaster.BroadcastToRoom(room.ID, EventMatchFinished, map[string]interface{}{
		"winner": *battle.Winner,
		"reason": reason,
		"battle": battle,
	})
	s.scheduleTeardown(room.ID)
}

// scheduleTeardown keeps a finished room readable for a grace period before
// it is removed from the registry.
func (s *DuelService) scheduleTeardown(roomID string) {
	if s.cfg.GracePeriod <= 0 {
		s.registry.Destroy(roomID)
		return
	}
	time.AfterFunc(s.cfg.GracePeriod, func() { s.registry.Destroy(roomID) })
}

func (s *DuelService) RoomByConn(connID string) *arena.Room {
	return s.registry.RoomByConn(connID)
}

func (s *DuelService) Room(roomID string) *arena.Room {
	return s.registry.Get(roomID)
}

func (s *DuelService) broadcastRoomUpdate(room *arena.Room) {
	s.broadcaster.BroadcastToRoom(room.ID, EventRoomUpdate, map[string]interface{}{
		"room_id":      room.ID,
		"status":       room.Status(),
		"participants": room.Participants(),
		"team":         room.Config.Team,
	})
}
