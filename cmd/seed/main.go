package main

import (
	"context"
	"log"
	"time"
	"duel_arena/internal/domain/model"
	"duel_arena/internal/domain/repository"
	"duel_arena/internal/platform/config"
	"duel_arena/internal/platform/database"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Seeds the database with the schema, a few practice problems and two demo
// accounts. Safe to re-run: existing rows are left alone.
func main() {
	config.Load()
	database.Connect()
	defer database.Close()

	ctx := context.Background()

	if err := createSchema(ctx); err != nil {
		log.Fatalf("schema setup failed: %v", err)
	}
	log.Println("Schema ready.")

	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)

	seedUsers(ctx, userRepo)
	seedProblems(ctx, problemRepo)

	log.Println("Seed complete.")
}

func createSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			rating INT NOT NULL DEFAULT 1000,
			duel_wins INT NOT NULL DEFAULT 0,
			duel_losses INT NOT NULL DEFAULT 0,
			duel_draws INT NOT NULL DEFAULT 0,
			team_battles_won INT NOT NULL DEFAULT 0,
			team_battles_played INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS problems (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			slug TEXT UNIQUE NOT NULL,
			description TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			time_limit_ms INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS examples (
			id UUID PRIMARY KEY,
			problem_id UUID NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
			input TEXT NOT NULL,
			expected_output TEXT NOT NULL,
			sort_order INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS test_cases (
			id UUID PRIMARY KEY,
			problem_id UUID NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
			input TEXT NOT NULL,
			expected_output TEXT NOT NULL,
			sort_order INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			problem_id UUID NOT NULL,
			room_id TEXT NOT NULL DEFAULT '',
			code TEXT NOT NULL,
			language TEXT NOT NULL,
			status TEXT NOT NULL,
			passed_count INT NOT NULL DEFAULT 0,
			total_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS duels (
			id UUID PRIMARY KEY,
			room_id TEXT NOT NULL,
			player_a_id UUID NOT NULL,
			player_b_id UUID NOT NULL,
			problem_id TEXT NOT NULL DEFAULT '',
			winner TEXT NOT NULL,
			reason TEXT NOT NULL,
			duration_seconds INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS team_battles (
			id UUID PRIMARY KEY,
			room_code TEXT NOT NULL,
			status TEXT NOT NULL,
			doc JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_user ON submissions (user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_duels_players ON duels (player_a_id, player_b_id, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := database.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func seedUsers(ctx context.Context, userRepo repository.UserRepository) {
	users := []model.User{
		{ID: uuid.NewString(), Username: "alice", Email: "alice@example.com", Rating: model.DefaultRating},
		{ID: uuid.NewString(), Username: "bob", Email: "bob@example.com", Rating: model.DefaultRating},
	}
	for i := range users {
		if _, err := userRepo.FindByUsername(ctx, users[i].Username); err == nil {
			continue
		}
		if err := userRepo.Create(ctx, &users[i]); err != nil {
			log.Printf("WARN: could not seed user %s: %v", users[i].Username, err)
			continue
		}
		log.Printf("Seeded user %s", users[i].Username)
	}
}

type seedProblem struct {
	title       string
	description string
	difficulty  model.ProblemDifficulty
	examples    []model.Example
	hidden      []model.TestCase
}

func seedProblems(ctx context.Context, problemRepo repository.ProblemRepository) {
	problems := []seedProblem{
		{
			title:       "Sum of Two Numbers",
			description: "Read two integers from standard input and print their sum.",
			difficulty:  model.DifficultyEasy,
			examples: []model.Example{
				{Input: "1 2\n", ExpectedOutput: "3\n"},
				{Input: "-5 5\n", ExpectedOutput: "0\n"},
			},
			hidden: []model.TestCase{
				{Input: "100 250\n", ExpectedOutput: "350\n"},
				{Input: "0 0\n", ExpectedOutput: "0\n"},
				{Input: "-10 -20\n", ExpectedOutput: "-30\n"},
			},
		},
		{
			title:       "Reverse a String",
			description: "Read a single line and print it reversed.",
			difficulty:  model.DifficultyEasy,
			examples: []model.Example{
				{Input: "hello\n", ExpectedOutput: "olleh\n"},
			},
			hidden: []model.TestCase{
				{Input: "racecar\n", ExpectedOutput: "racecar\n"},
				{Input: "ab\n", ExpectedOutput: "ba\n"},
			},
		},
		{
			title:       "Count Distinct Elements",
			description: "The first line holds n, the second line n integers. Print the number of distinct values.",
			difficulty:  model.DifficultyMedium,
			examples: []model.Example{
				{Input: "5\n1 2 2 3 1\n", ExpectedOutput: "3\n"},
			},
			hidden: []model.TestCase{
				{Input: "1\n42\n", ExpectedOutput: "1\n"},
				{Input: "6\n7 7 7 7 7 7\n", ExpectedOutput: "1\n"},
				{Input: "4\n1 2 3 4\n", ExpectedOutput: "4\n"},
			},
		},
		{
			title:       "Longest Balanced Substring",
			description: "Given a string of '(' and ')', print the length of the longest balanced substring.",
			difficulty:  model.DifficultyHard,
			examples: []model.Example{
				{Input: "(()\n", ExpectedOutput: "2\n"},
				{Input: ")()())\n", ExpectedOutput: "4\n"},
			},
			hidden: []model.TestCase{
				{Input: "\n", ExpectedOutput: "0\n"},
				{Input: "()(())\n", ExpectedOutput: "6\n"},
				{Input: "))((\n", ExpectedOutput: "0\n"},
			},
		},
	}

	for _, sp := range problems {
		problemSlug := slug.Make(sp.title)
		if _, err := problemRepo.FindProblemBySlug(ctx, problemSlug); err == nil {
			continue
		}

		now := time.Now()
		problem := &model.Problem{
			ID:          uuid.NewString(),
			Title:       sp.title,
			Slug:        problemSlug,
			Description: sp.description,
			Difficulty:  sp.difficulty,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for i := range sp.examples {
			sp.examples[i].ID = uuid.NewString()
			sp.examples[i].ProblemID = problem.ID
		}
		for i := range sp.hidden {
			sp.hidden[i].ID = uuid.NewString()
			sp.hidden[i].ProblemID = problem.ID
		}

		tx, err := database.DB.BeginTx(ctx, nil)
		if err != nil {
			log.Fatalf("could not begin transaction: %v", err)
		}
		if err := problemRepo.CreateProblem(ctx, tx, problem); err != nil {
			tx.Rollback()
			log.Printf("WARN: could not seed problem %s: %v", sp.title, err)
			continue
		}
		if err := problemRepo.AddExamplesToProblem(ctx, tx, problem.ID, sp.examples); err != nil {
			tx.Rollback()
			log.Printf("WARN: could not seed examples for %s: %v", sp.title, err)
			continue
		}
		if err := problemRepo.AddTestCasesToProblem(ctx, tx, problem.ID, sp.hidden); err != nil {
			tx.Rollback()
			log.Printf("WARN: could not seed test cases for %s: %v", sp.title, err)
			continue
		}
		if err := tx.Commit(); err != nil {
			log.Printf("WARN: could not commit problem %s: %v", sp.title, err)
			continue
		}

		log.Printf("Seeded problem %s (%s)", sp.title, problemSlug)
	}
}
