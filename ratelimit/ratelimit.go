// Package ratelimit implements a Redis fixed-window limiter for auth endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter đếm số request trong mỗi cửa sổ cố định theo key.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewLimiter(rdb *redis.Client, prefix string, limit int64, window time.Duration) *Limiter {
	if prefix == "" {
		prefix = "codereview:ratelimit"
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

// Allow tăng bộ đếm của key; khi vượt limit trả về false và thời gian chờ còn lại.
// Limiter nil hoặc limit <= 0 thì luôn cho qua.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l == nil || l.rdb == nil || l.limit <= 0 {
		return true, 0, nil
	}
	full := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.rdb.Incr(ctx, full).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit incr: %w", err)
	}
	// Request đầu tiên của cửa sổ đặt TTL
	if count == 1 {
		if err := l.rdb.PExpire(ctx, full, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("ratelimit expire: %w", err)
		}
	}
	if count <= l.limit {
		return true, 0, nil
	}

	wait, err := l.rdb.PTTL(ctx, full).Result()
	if err != nil || wait <= 0 {
		wait = l.window
	}
	return false, wait, nil
}

func (l *Limiter) Limit() int64 {
	if l == nil {
		return 0
	}
	return l.limit
}
