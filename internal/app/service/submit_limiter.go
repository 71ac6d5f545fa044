package service

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubmitLimiter enforces the per-identity submit cooldown with a redis
// SET NX + TTL, so the window survives reconnects and holds across every
// connection a user might open.
type SubmitLimiter struct {
	rdb      *redis.Client
	cooldown time.Duration
}

func NewSubmitLimiter(rdb *redis.Client, cooldown time.Duration) *SubmitLimiter {
	return &SubmitLimiter{rdb: rdb, cooldown: cooldown}
}

// Allow reports whether userID may submit now, consuming the slot if so.
// Redis being down fails open.
func (l *SubmitLimiter) Allow(ctx context.Context, userID string) bool {
	ok, err := l.rdb.SetNX(ctx, "duel:submit_cooldown:"+userID, 1, l.cooldown).Result()
	if err != nil {
		log.Printf("WARN: submit limiter redis error, allowing submit: %v", err)
		return true
	}
	return ok
}
