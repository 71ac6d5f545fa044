package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"duel_arena/internal/common"
	"duel_arena/internal/domain/model"
)

type SubmissionRepository interface {
	// CreateSubmission writes the in-flight record before judging so the
	// audit trail survives a crash mid-judging.
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	// UpdateSubmissionResult applies the final verdict exactly once.
	UpdateSubmissionResult(ctx context.Context, id string, status model.SubmissionStatus, passed, total int, completedAt time.Time) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, problem_id, room_id, code, language, status, passed_count, total_count, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.ProblemID, sub.RoomID, sub.Code, sub.Language,
		sub.Status, sub.PassedCount, sub.TotalCount, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) UpdateSubmissionResult(ctx context.Context, id string, status model.SubmissionStatus, passed, total int, completedAt time.Time) error {
	query := `UPDATE submissions SET status = $1, passed_count = $2, total_count = $3, completed_at = $4
	          WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query, status, passed, total, completedAt, id)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.UpdateSubmissionResult: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT id, user_id, problem_id, room_id, code, language, status, passed_count, total_count, created_at, completed_at
	          FROM submissions WHERE id = $1`
	sub := &model.Submission{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.UserID, &sub.ProblemID, &sub.RoomID, &sub.Code, &sub.Language,
		&sub.Status, &sub.PassedCount, &sub.TotalCount, &sub.CreatedAt, &sub.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, error) {
	query := `SELECT id, user_id, problem_id, room_id, code, language, status, passed_count, total_count, created_at, completed_at
	          FROM submissions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser query: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(
			&sub.ID, &sub.UserID, &sub.ProblemID, &sub.RoomID, &sub.Code, &sub.Language,
			&sub.Status, &sub.PassedCount, &sub.TotalCount, &sub.CreatedAt, &sub.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser scan: %w", err)
		}
		subs = append(subs, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser rows.Err: %w", err)
	}
	return subs, nil
}
