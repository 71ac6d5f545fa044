package model

import (
	"time"
)

type User struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	Rating            int       `json:"rating"`
	DuelWins          int       `json:"duel_wins"`
	DuelLosses        int       `json:"duel_losses"`
	DuelDraws         int       `json:"duel_draws"`
	TeamBattlesWon    int       `json:"team_battles_won"`
	TeamBattlesPlayed int       `json:"team_battles_played"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

const DefaultRating = 1000
