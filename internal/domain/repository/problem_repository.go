package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"duel_arena/internal/common"
	"duel_arena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
	// SampleRandomProblem picks one problem uniformly at random, optionally
	// restricted to a difficulty.
	SampleRandomProblem(ctx context.Context, difficulty model.ProblemDifficulty) (*model.Problem, error)

	AddExamplesToProblem(ctx context.Context, tx *sql.Tx, problemID string, examples []model.Example) error
	GetExamplesByProblemID(ctx context.Context, problemID string) ([]model.Example, error)

	AddTestCasesToProblem(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error
	GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `INSERT INTO problems (id, title, slug, description, difficulty, time_limit_ms)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Description, p.Difficulty, p.TimeLimitMs)
	} else {
		_, err = r.db.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Description, p.Difficulty, p.TimeLimitMs)
	}

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	return nil
}

const problemColumns = `id, title, slug, description, difficulty, time_limit_ms, created_at, updated_at`

func (r *pgProblemRepository) scanProblem(row *sql.Row) (*model.Problem, error) {
	problem := &model.Problem{}
	err := row.Scan(
		&problem.ID, &problem.Title, &problem.Slug, &problem.Description,
		&problem.Difficulty, &problem.TimeLimitMs, &problem.CreatedAt, &problem.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return problem, nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE id = $1`
	problem, err := r.scanProblem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pgProblemRepository.FindProblemByID: %w", err)
	}
	return problem, nil
}

func (r *pgProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE slug = $1`
	problem, err := r.scanProblem(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pgProblemRepository.FindProblemBySlug: %w", err)
	}
	return problem, nil
}

func (r *pgProblemRepository) SampleRandomProblem(ctx context.Context, difficulty model.ProblemDifficulty) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems`
	args := []interface{}{}
	if difficulty != "" {
		query += ` WHERE difficulty = $1`
		args = append(args, difficulty)
	}
	query += ` ORDER BY random() LIMIT 1`

	problem, err := r.scanProblem(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pgProblemRepository.SampleRandomProblem: %w", err)
	}
	return problem, nil
}

func (r *pgProblemRepository) AddExamplesToProblem(ctx context.Context, tx *sql.Tx, problemID string, examples []model.Example) error {
	if len(examples) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO examples (id, problem_id, input, expected_output, sort_order) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.AddExamplesToProblem prepare: %w", err)
	}
	defer stmt.Close()

	for i, ex := range examples {
		ex.SortOrder = i + 1
		_, err := stmt.ExecContext(ctx, ex.ID, problemID, ex.Input, ex.ExpectedOutput, ex.SortOrder)
		if err != nil {
			return fmt.Errorf("pgProblemRepository.AddExamplesToProblem exec for example %s: %w", ex.ID, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) GetExamplesByProblemID(ctx context.Context, problemID string) ([]model.Example, error) {
	query := `SELECT id, problem_id, input, expected_output, sort_order
              FROM examples WHERE problem_id = $1 ORDER BY sort_order ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetExamplesByProblemID query: %w", err)
	}
	defer rows.Close()

	var examples []model.Example
	for rows.Next() {
		var ex model.Example
		if err := rows.Scan(&ex.ID, &ex.ProblemID, &ex.Input, &ex.ExpectedOutput, &ex.SortOrder); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetExamplesByProblemID scan: %w", err)
		}
		examples = append(examples, ex)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetExamplesByProblemID rows.Err: %w", err)
	}
	return examples, nil
}

func (r *pgProblemRepository) AddTestCasesToProblem(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error {
	if len(testCases) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO test_cases (id, problem_id, input, expected_output, sort_order) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.AddTestCasesToProblem prepare: %w", err)
	}
	defer stmt.Close()

	for i, tc := range testCases {
		tc.SortOrder = i + 1
		_, err := stmt.ExecContext(ctx, tc.ID, problemID, tc.Input, tc.ExpectedOutput, tc.SortOrder)
		if err != nil {
			return fmt.Errorf("pgProblemRepository.AddTestCasesToProblem exec for test case %s: %w", tc.ID, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error) {
	query := `SELECT id, problem_id, input, expected_output, sort_order
              FROM test_cases WHERE problem_id = $1 ORDER BY sort_order ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID query: %w", err)
	}
	defer rows.Close()

	var testCases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.ExpectedOutput, &tc.SortOrder); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID scan: %w", err)
		}
		testCases = append(testCases, tc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID rows.Err: %w", err)
	}
	return testCases, nil
}
