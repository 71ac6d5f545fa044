package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"duel_arena/internal/api"
	"duel_arena/internal/app/judge"
	"duel_arena/internal/app/service"
	"duel_arena/internal/common/security"
	"duel_arena/internal/domain/arena"
	"duel_arena/internal/domain/repository"
	"duel_arena/internal/platform/config"
	"duel_arena/internal/platform/database"
	"duel_arena/internal/platform/queue"
	"duel_arena/internal/realtime"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	fmt.Println("Database connected.")

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()
	fmt.Println("Redis connected.")

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	matchRepo := repository.NewPgMatchRepository(database.DB)

	// 6. Initialize Services
	judgeClient := judge.NewJudge0Client(
		config.AppConfig.JudgeURL,
		config.AppConfig.JudgeAPIKey,
		time.Duration(config.AppConfig.JudgeTimeoutMs)*time.Millisecond,
	)
	limiter := service.NewSubmitLimiter(queue.RDB, time.Duration(config.AppConfig.SubmitCooldownSeconds)*time.Second)

	hub := realtime.NewHub()
	registry := arena.NewRegistry()
	battleService := service.NewBattleService(matchRepo, userRepo)
	duelService := service.NewDuelService(
		registry,
		problemRepo,
		submissionRepo,
		userRepo,
		matchRepo,
		battleService,
		judgeClient,
		limiter,
		hub,
		service.DuelConfig{
			DefaultTimeLimit: time.Duration(config.AppConfig.DefaultTimeLimitSeconds) * time.Second,
			DefaultBudgetMs:  config.AppConfig.DefaultTestBudgetMs,
			GracePeriod:      time.Duration(config.AppConfig.RoomGracePeriodSeconds) * time.Second,
			KFactor:          config.AppConfig.RatingKFactor,
			RosterSize:       config.AppConfig.TeamRosterSize,
			BattleProblems:   config.AppConfig.BattleProblemCount,
		},
	)
	recordsService := service.NewRecordsService(problemRepo, submissionRepo, userRepo, matchRepo)

	// 7. Initialize Router & HTTP Server
	wsHandler := realtime.NewHandler(hub, duelService, userRepo)
	router := api.NewRouter(recordsService, wsHandler)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped gracefully.")
}
