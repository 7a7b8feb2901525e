package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims entries older than the window, then admits the
// request only if the remaining count is below the limit.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local window_start = tonumber(ARGV[1])
	local now = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	if redis.call('ZCARD', key) >= limit then
		return 0
	end
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window_ms)
	return 1
`)

// Limiter throttles register/login attempts per key across all replicas.
type Limiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

func NewLimiter(client redis.Cmdable, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: "ratelimit:auth:", limit: limit, window: window}
}

// Allow records an attempt for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	res, err := slidingWindow.Run(ctx, l.client, []string{l.prefix + key},
		now.Add(-l.window).UnixMicro(),
		now.UnixMicro(),
		l.limit,
		l.window.Milliseconds(),
		uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return res == 1, nil
}
