package model

import (
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "Easy"
	DifficultyMedium ProblemDifficulty = "Medium"
	DifficultyHard   ProblemDifficulty = "Hard"
)

type Problem struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Slug         string            `json:"slug"`
	Description  string            `json:"description"`
	Difficulty   ProblemDifficulty `json:"difficulty"`
	TimeLimitMs  int               `json:"time_limit_ms"` // per-test budget for judging
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	ExampleTests []Example         `json:"example_tests,omitempty"` // public test cases
	HiddenTests  []TestCase        `json:"hidden_tests,omitempty"`  // never sent to clients
}

type Example struct {
	ID             string `json:"id"`
	ProblemID      string `json:"problem_id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	SortOrder      int    `json:"sort_order"`
}

type TestCase struct { // hidden test cases
	ID             string `json:"id"`
	ProblemID      string `json:"problem_id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	SortOrder      int    `json:"sort_order"`
}

// PublicView strips everything a duel participant must not see while the
// match is running.
type ProblemPublicView struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Slug         string            `json:"slug"`
	Description  string            `json:"description"`
	Difficulty   ProblemDifficulty `json:"difficulty"`
	ExampleTests []Example         `json:"example_tests"`
}

func (p *Problem) PublicView() ProblemPublicView {
	return ProblemPublicView{
		ID:           p.ID,
		Title:        p.Title,
		Slug:         p.Slug,
		Description:  p.Description,
		Difficulty:   p.Difficulty,
		ExampleTests: p.ExampleTests,
	}
}

// BasePoints is the team-battle score base for a problem of this difficulty.
func (d ProblemDifficulty) BasePoints() int {
	switch d {
	case DifficultyEasy:
		return 100
	case DifficultyMedium:
		return 200
	default: // Hard and anything unknown
		return 300
	}
}
