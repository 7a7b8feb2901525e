//go:build integration

package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestLimiter_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:16379"
	}
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping Redis tests: %v", err)
	}

	l := NewLimiter(rdb, 3, 500*time.Millisecond)
	key := "test-" + uuid.NewString()
	defer rdb.Del(ctx, l.prefix+key)

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, key)
		if err != nil || !ok {
			t.Fatalf("attempt %d: Allow() = %v, %v; want true", i, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, key); ok {
		t.Error("4th attempt allowed, want denied")
	}

	if ok, _ := l.Allow(ctx, "other-"+key); !ok {
		t.Error("other key denied")
	}
	defer rdb.Del(ctx, l.prefix+"other-"+key)

	time.Sleep(600 * time.Millisecond)
	if ok, err := l.Allow(ctx, key); err != nil || !ok {
		t.Errorf("after window: Allow() = %v, %v; want true", ok, err)
	}
}
