package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JudgeURL       string
	JudgeAPIKey    string
	JudgeTimeoutMs int

	DefaultTimeLimitSeconds int
	DefaultTestBudgetMs     int
	SubmitCooldownSeconds   int
	RoomGracePeriodSeconds  int
	RatingKFactor           int
	TeamRosterSize          int
	BattleProblemCount      int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:       getEnv("API_PORT", "8080"),
		JWTKey:        []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:        time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "user"),
		DBPassword:    getEnv("DB_PASSWORD", "password"),
		DBName:        getEnv("DB_NAME", "duel_arena_db"),
		DBSslMode:     getEnv("DB_SSLMODE", "disable"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JudgeURL:       getEnv("JUDGE_URL", "https://ce.judge0.com"),
		JudgeAPIKey:    getEnv("JUDGE_API_KEY", ""),
		JudgeTimeoutMs: getEnvAsInt("JUDGE_TIMEOUT_MS", 30000),

		DefaultTimeLimitSeconds: getEnvAsInt("DUEL_DEFAULT_TIME_LIMIT_SECONDS", 600),
		DefaultTestBudgetMs:     getEnvAsInt("DUEL_DEFAULT_TEST_BUDGET_MS", 30000),
		SubmitCooldownSeconds:   getEnvAsInt("DUEL_SUBMIT_COOLDOWN_SECONDS", 3),
		RoomGracePeriodSeconds:  getEnvAsInt("DUEL_ROOM_GRACE_PERIOD_SECONDS", 60),
		RatingKFactor:           getEnvAsInt("DUEL_RATING_K_FACTOR", 30),
		TeamRosterSize:          getEnvAsInt("BATTLE_TEAM_ROSTER_SIZE", 3),
		BattleProblemCount:      getEnvAsInt("BATTLE_PROBLEM_COUNT", 3),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
