package service

import (
	"context"
	"log"
	"sync"
	"time"
	"duel_arena/internal/common"
	"duel_arena/internal/domain/arena"
	"duel_arena/internal/domain/model"
	"duel_arena/internal/domain/repository"

	"github.com/google/uuid"
)

// BattleService owns team-battle scoring. Unlike 1v1 settlement it is
// incremental: every accepted submission awards points immediately and the
// durable aggregate is finalized once at battle end.
type BattleService struct {
	matchRepo repository.MatchRepository
	userRepo  repository.UserRepository

	mu      sync.Mutex
	battles map[string]*battleState // roomID -> live battle
}

type battleState struct {
	battle       *model.TeamBattle
	difficulties map[string]model.ProblemDifficulty // problemID -> difficulty
}

func NewBattleService(matchRepo repository.MatchRepository, userRepo repository.UserRepository) *BattleService {
	return &BattleService{
		matchRepo: matchRepo,
		userRepo:  userRepo,
		battles:   make(map[string]*battleState),
	}
}

// StartBattle creates the durable aggregate for a started team room.
func (s *BattleService) StartBattle(ctx context.Context, room *arena.Room, problems []*model.Problem) (*model.TeamBattle, error) {
	now := time.Now()
	battle := &model.TeamBattle{
		ID:               uuid.NewString(),
		RoomCode:         room.ID,
		Status:           "ongoing",
		TimeLimitSeconds: int(room.Config.TimeLimit.Seconds()),
		StartTime:        &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	difficulties := make(map[string]model.ProblemDifficulty, len(problems))
	for _, p := range problems {
		battle.ProblemIDs = append(battle.ProblemIDs, p.ID)
		difficulties[p.ID] = p.Difficulty
	}
	for _, p := range room.Roster() {
		battle.Participants = append(battle.Participants, model.BattleParticipant{
			UserID:   p.UserID,
			TeamSide: p.TeamSide,
		})
	}

	if err := s.matchRepo.CreateTeamBattle(ctx, battle); err != nil {
		return nil, common.Errorf("failed to create team battle: %w", err)
	}

	s.mu.Lock()
	s.battles[room.ID] = &battleState{battle: battle, difficulties: difficulties}
	s.mu.Unlock()
	return battle, nil
}

// ApplySubmission scores one judged submission:
// base(difficulty) - 1 point per elapsed minute - 10 per prior wrong attempt,
// floored at zero. A user scores at most once per problem; later accepted
// resubmissions are no-ops. Wrong verdicts only bump the attempt counter.
// Returns the points gained (zero for non-scoring submissions).
func (s *BattleService) ApplySubmission(ctx context.Context, roomID, userID, problemID string, accepted bool, submittedAt time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.battles[roomID]
	if st == nil || st.battle.Status != "ongoing" {
		return 0
	}
	battle := st.battle

	participant := findParticipant(battle, userID)
	if participant == nil {
		return 0
	}

	ledger := findLedger(battle, userID, problemID)
	if ledger == nil {
		battle.PerUserProblem = append(battle.PerUserProblem, model.UserProblemLedgerItem{
			UserID:    userID,
			ProblemID: problemID,
		})
		ledger = &battle.PerUserProblem[len(battle.PerUserProblem)-1]
	}

	if ledger.Solved {
		return 0
	}

	gained := 0
	if accepted {
		ledger.Solved = true

		base := st.difficulties[problemID].BasePoints()
		elapsed := 0
		if battle.StartTime != nil {
			elapsed = int(submittedAt.Sub(*battle.StartTime).Seconds())
			if elapsed < 0 {
				elapsed = 0
			}
		}
		timePenalty := elapsed / 60 // 1 pt / minute
		wrongPenalty := ledger.WrongAttempts * 10

		gained = base - timePenalty - wrongPenalty
		if gained < 0 {
			gained = 0
		}

		participant.Score += gained
		participant.Solved++
		participant.TotalTimeSeconds += elapsed

		team := teamStats(battle, participant.TeamSide)
		team.Score += gained
		team.Solved++
		team.TotalTimeSeconds += elapsed
	} else {
		ledger.WrongAttempts++
	}

	battle.UpdatedAt = time.Now()
	if err := s.matchRepo.UpdateTeamBattle(ctx, battle); err != nil {
		log.Printf("ERROR: failed to persist team battle %s after submission: %v", battle.ID, err)
	}
	return gained
}

// Finish finalizes the battle once: higher team score wins, ties break to the
// lower total time across solved problems, then to an explicit draw. Only the
// first call does anything; later calls find no live battle and return nil.
func (s *BattleService) Finish(ctx context.Context, roomID string) *model.TeamBattle {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.battles[roomID]
	if st == nil {
		return nil
	}
	battle := st.battle

	battle.Status = "finished"
	now := time.Now()
	battle.EndTime = &now

	winner := model.WinnerDraw
	switch {
	case battle.TeamA.Score > battle.TeamB.Score:
		winner = model.WinnerA
	case battle.TeamB.Score > battle.TeamA.Score:
		winner = model.WinnerB
	case battle.TeamA.TotalTimeSeconds < battle.TeamB.TotalTimeSeconds:
		winner = model.WinnerA
	case battle.TeamB.TotalTimeSeconds < battle.TeamA.TotalTimeSeconds:
		winner = model.WinnerB
	}
	battle.Winner = &winner
	battle.UpdatedAt = now

	if err := s.matchRepo.UpdateTeamBattle(ctx, battle); err != nil {
		log.Printf("ERROR: failed to finalize team battle %s: %v", battle.ID, err)
	}
	for _, p := range battle.Participants {
		if err := s.userRepo.ApplyBattleResult(ctx, p.UserID, p.TeamSide == winner); err != nil {
			log.Printf("ERROR: failed to update battle record for user %s: %v", p.UserID, err)
		}
	}

	delete(s.battles, roomID)
	return battle
}

func findParticipant(b *model.TeamBattle, userID string) *model.BattleParticipant {
	for i := range b.Participants {
		if b.Participants[i].UserID == userID {
			return &b.Participants[i]
		}
	}
	return nil
}

func findLedger(b *model.TeamBattle, userID, problemID string) *model.UserProblemLedgerItem {
	for i := range b.PerUserProblem {
		if b.PerUserProblem[i].UserID == userID && b.PerUserProblem[i].ProblemID == problemID {
			return &b.PerUserProblem[i]
		}
	}
	return nil
}

func teamStats(b *model.TeamBattle, side string) *model.TeamStats {
	if side == model.WinnerB {
		return &b.TeamB
	}
	return &b.TeamA
}
