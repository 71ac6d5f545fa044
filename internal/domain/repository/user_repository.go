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

// DuelRecordDelta is applied to a user's counters at settlement. Rating moves
// by RatingDelta; exactly one of Wins/Losses/Draws is 1.
type DuelRecordDelta struct {
	RatingDelta int
	Wins        int
	Losses      int
	Draws       int
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// ApplyDuelResult increments rating and win/loss counters in a single
	// UPDATE so concurrent settlements of unrelated matches touching the
	// same user cannot lose updates.
	ApplyDuelResult(ctx context.Context, userID string, delta DuelRecordDelta) error
	// ApplyBattleResult bumps team-battle counters the same way.
	ApplyBattleResult(ctx context.Context, userID string, won bool) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, rating)
	          VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.Rating)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

const userColumns = `id, username, email, rating, duel_wins, duel_losses, duel_draws,
	          team_battles_won, team_battles_played, created_at, updated_at`

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.findOne(ctx, query, username)
}

func (r *pgUserRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.Rating,
		&user.DuelWins, &user.DuelLosses, &user.DuelDraws,
		&user.TeamBattlesWon, &user.TeamBattlesPlayed,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.findOne: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) ApplyDuelResult(ctx context.Context, userID string, delta DuelRecordDelta) error {
	query := `UPDATE users SET
	            rating = rating + $1,
	            duel_wins = duel_wins + $2,
	            duel_losses = duel_losses + $3,
	            duel_draws = duel_draws + $4,
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query, delta.RatingDelta, delta.Wins, delta.Losses, delta.Draws, userID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.ApplyDuelResult: %w", err)
	}
	return nil
}

func (r *pgUserRepository) ApplyBattleResult(ctx context.Context, userID string, won bool) error {
	wins := 0
	if won {
		wins = 1
	}
	query := `UPDATE users SET
	            team_battles_won = team_battles_won + $1,
	            team_battles_played = team_battles_played + 1,
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, wins, userID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.ApplyBattleResult: %w", err)
	}
	return nil
}
