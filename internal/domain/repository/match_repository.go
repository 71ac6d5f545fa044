package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"duel_arena/internal/common"
	"duel_arena/internal/domain/model"
)

type MatchRepository interface {
	// CreateDuel writes the immutable 1v1 result record.
	CreateDuel(ctx context.Context, duel *model.Duel) error
	ListRecentDuels(ctx context.Context, limit int) ([]model.Duel, error)
	ListDuelsByUser(ctx context.Context, userID string, limit int) ([]model.Duel, error)

	CreateTeamBattle(ctx context.Context, battle *model.TeamBattle) error
	// UpdateTeamBattle persists the incrementally mutated aggregate.
	UpdateTeamBattle(ctx context.Context, battle *model.TeamBattle) error
	FindTeamBattleByID(ctx context.Context, id string) (*model.TeamBattle, error)
}

type pgMatchRepository struct {
	db *sql.DB
}

func NewPgMatchRepository(db *sql.DB) MatchRepository {
	return &pgMatchRepository{db: db}
}

func (r *pgMatchRepository) CreateDuel(ctx context.Context, d *model.Duel) error {
	query := `INSERT INTO duels (id, room_id, player_a_id, player_b_id, problem_id, winner, reason, duration_seconds, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.RoomID, d.PlayerAID, d.PlayerBID, d.ProblemID, d.Winner, d.Reason, d.DurationSeconds, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("pgMatchRepository.CreateDuel: %w", err)
	}
	return nil
}

const duelColumns = `id, room_id, player_a_id, player_b_id, problem_id, winner, reason, duration_seconds, created_at`

func (r *pgMatchRepository) ListRecentDuels(ctx context.Context, limit int) ([]model.Duel, error) {
	query := `SELECT ` + duelColumns + ` FROM duels ORDER BY created_at DESC LIMIT $1`
	return r.listDuels(ctx, query, limit)
}

func (r *pgMatchRepository) ListDuelsByUser(ctx context.Context, userID string, limit int) ([]model.Duel, error) {
	query := `SELECT ` + duelColumns + ` FROM duels
	          WHERE player_a_id = $1 OR player_b_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.listDuels(ctx, query, userID, limit)
}

func (r *pgMatchRepository) listDuels(ctx context.Context, query string, args ...interface{}) ([]model.Duel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgMatchRepository.listDuels query: %w", err)
	}
	defer rows.Close()

	var duels []model.Duel
	for rows.Next() {
		var d model.Duel
		if err := rows.Scan(&d.ID, &d.RoomID, &d.PlayerAID, &d.PlayerBID, &d.ProblemID, &d.Winner, &d.Reason, &d.DurationSeconds, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgMatchRepository.listDuels scan: %w", err)
		}
		duels = append(duels, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgMatchRepository.listDuels rows.Err: %w", err)
	}
	return duels, nil
}

// Team battle aggregates (participants, per-user-problem ledger) live in
// jsonb columns; they are read-modify-written only by the single goroutine
// driving one battle, so no cross-row races exist.
func (r *pgMatchRepository) CreateTeamBattle(ctx context.Context, b *model.TeamBattle) error {
	doc, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("pgMatchRepository.CreateTeamBattle marshal: %w", err)
	}
	query := `INSERT INTO team_battles (id, room_code, status, doc, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.db.ExecContext(ctx, query, b.ID, b.RoomCode, b.Status, doc, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgMatchRepository.CreateTeamBattle: %w", err)
	}
	return nil
}

func (r *pgMatchRepository) UpdateTeamBattle(ctx context.Context, b *model.TeamBattle) error {
	doc, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("pgMatchRepository.UpdateTeamBattle marshal: %w", err)
	}
	query := `UPDATE team_battles SET status = $1, doc = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`
	_, err = r.db.ExecContext(ctx, query, b.Status, doc, b.ID)
	if err != nil {
		return fmt.Errorf("pgMatchRepository.UpdateTeamBattle: %w", err)
	}
	return nil
}

func (r *pgMatchRepository) FindTeamBattleByID(ctx context.Context, id string) (*model.TeamBattle, error) {
	query := `SELECT doc FROM team_battles WHERE id = $1`
	var doc []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgMatchRepository.FindTeamBattleByID: %w", err)
	}
	battle := &model.TeamBattle{}
	if err := json.Unmarshal(doc, battle); err != nil {
		return nil, fmt.Errorf("pgMatchRepository.FindTeamBattleByID unmarshal: %w", err)
	}
	return battle, nil
}
