package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cooldown time.Duration) (*SubmitLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewSubmitLimiter(rdb, cooldown), mr
}

func TestSubmitLimiterBlocksWithinCooldown(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3*time.Second)
	ctx := context.Background()

	if !limiter.Allow(ctx, "u1") {
		t.Fatal("first submit should be allowed")
	}
	if limiter.Allow(ctx, "u1") {
		t.Fatal("second submit inside the cooldown should be blocked")
	}
	if !limiter.Allow(ctx, "u2") {
		t.Fatal("another user must not share the cooldown")
	}
}

func TestSubmitLimiterAllowsAfterExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, 3*time.Second)
	ctx := context.Background()

	if !limiter.Allow(ctx, "u1") {
		t.Fatal("first submit should be allowed")
	}
	mr.FastForward(4 * time.Second)
	if !limiter.Allow(ctx, "u1") {
		t.Fatal("submit after cooldown expiry should be allowed")
	}
}

func TestSubmitLimiterFailsOpenWhenRedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, 3*time.Second)
	mr.Close()

	if !limiter.Allow(context.Background(), "u1") {
		t.Fatal("limiter must fail open when redis is unreachable")
	}
}
