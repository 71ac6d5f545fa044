package service

import (
	"context"
	"duel_arena/internal/common"
	"duel_arena/internal/domain/model"
	"duel_arena/internal/domain/repository"
)

// RecordsService serves the read side: match history, profiles and public
// problem views. It never touches live rooms.
type RecordsService struct {
	problemRepo    repository.ProblemRepository
	submissionRepo repository.SubmissionRepository
	userRepo       repository.UserRepository
	matchRepo      repository.MatchRepository
}

func NewRecordsService(
	problemRepo repository.ProblemRepository,
	submissionRepo repository.SubmissionRepository,
	userRepo repository.UserRepository,
	matchRepo repository.MatchRepository,
) *RecordsService {
	return &RecordsService{
		problemRepo:    problemRepo,
		submissionRepo: submissionRepo,
		userRepo:       userRepo,
		matchRepo:      matchRepo,
	}
}

// GetProblemBySlug returns the public view: examples included, hidden tests
// never leave the service layer.
func (s *RecordsService) GetProblemBySlug(ctx context.Context, slug string) (*model.ProblemPublicView, error) {
	problem, err := s.problemRepo.FindProblemBySlug(ctx, slug)
	if err != nil {
		return nil, common.Errorf("problem not found: %w", err)
	}
	examples, err := s.problemRepo.GetExamplesByProblemID(ctx, problem.ID)
	if err != nil {
		return nil, common.Errorf("failed to load examples: %w", err)
	}
	problem.ExampleTests = examples
	view := problem.PublicView()
	return &view, nil
}

func (s *RecordsService) RecentDuels(ctx context.Context, limit int) ([]model.Duel, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.matchRepo.ListRecentDuels(ctx, limit)
}

func (s *RecordsService) DuelsForUser(ctx context.Context, userID string, limit int) ([]model.Duel, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.matchRepo.ListDuelsByUser(ctx, userID, limit)
}

func (s *RecordsService) SubmissionsForUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.submissionRepo.ListSubmissionsByUser(ctx, userID, limit, offset)
}

func (s *RecordsService) Profile(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, common.Errorf("user not found: %w", err)
	}
	return user, nil
}

func (s *RecordsService) TeamBattle(ctx context.Context, id string) (*model.TeamBattle, error) {
	battle, err := s.matchRepo.FindTeamBattleByID(ctx, id)
	if err != nil {
		return nil, common.Errorf("team battle not found: %w", err)
	}
	return battle, nil
}
