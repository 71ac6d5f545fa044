package model

import "time"

// Winner markers shared by duels and team battles.
const (
	WinnerA    = "A"
	WinnerB    = "B"
	WinnerDraw = "draw"
)

// Finish reasons recorded on match results.
const (
	ReasonFirstAccepted = "first_accepted"
	ReasonTimeUp        = "time_up"
	ReasonOpponentLeft  = "opponent_left"
)

// Duel is the durable record of a finished 1v1 match. Written exactly once at
// settlement, never mutated.
type Duel struct {
	ID              string    `json:"id"`
	RoomID          string    `json:"room_id"`
	PlayerAID       string    `json:"player_a_id"`
	PlayerBID       string    `json:"player_b_id"`
	ProblemID       string    `json:"problem_id"`
	Winner          string    `json:"winner"` // A, B or draw
	Reason          string    `json:"reason"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// TeamBattle is the durable aggregate for a team-vs-team match. Unlike Duel it
// is mutated incrementally while the battle runs and finalized once.
type TeamBattle struct {
	ID               string                  `json:"id"`
	RoomCode         string                  `json:"room_code"`
	Status           string                  `json:"status"` // waiting, ongoing, finished
	ProblemIDs       []string                `json:"problem_ids"`
	TimeLimitSeconds int                     `json:"time_limit_seconds"`
	TeamA            TeamStats               `json:"team_a"`
	TeamB            TeamStats               `json:"team_b"`
	Participants     []BattleParticipant     `json:"participants"`
	PerUserProblem   []UserProblemLedgerItem `json:"per_user_problem"`
	Winner           *string                 `json:"winner,omitempty"` // A, B or draw
	StartTime        *time.Time              `json:"start_time,omitempty"`
	EndTime          *time.Time              `json:"end_time,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

type TeamStats struct {
	Score            int `json:"score"`
	Solved           int `json:"solved"`
	TotalTimeSeconds int `json:"total_time_seconds"`
}

type BattleParticipant struct {
	UserID           string `json:"user_id"`
	TeamSide         string `json:"team_side"` // A or B
	Score            int    `json:"score"`
	Solved           int    `json:"solved"`
	TotalTimeSeconds int    `json:"total_time_seconds"`
}

// UserProblemLedgerItem tracks per-user-per-problem attempts so a user can
// only score once per problem.
type UserProblemLedgerItem struct {
	UserID        string `json:"user_id"`
	ProblemID     string `json:"problem_id"`
	Solved        bool   `json:"solved"`
	WrongAttempts int    `json:"wrong_attempts"`
}
