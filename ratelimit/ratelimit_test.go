package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	rdb, _ := newMiniRedis(t)
	limiter := NewLimiter(rdb, "test", 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, _, err := limiter.Allow(context.Background(), "1.2.3.4")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	ok, wait, err := limiter.Allow(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if ok {
		t.Fatalf("expected 4th request to be rejected")
	}
	if wait <= 0 || wait > time.Minute {
		t.Fatalf("unexpected retry-after %v", wait)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	rdb, _ := newMiniRedis(t)
	limiter := NewLimiter(rdb, "test", 1, time.Minute)

	if ok, _, _ := limiter.Allow(context.Background(), "a"); !ok {
		t.Fatalf("first request for a should pass")
	}
	if ok, _, _ := limiter.Allow(context.Background(), "b"); !ok {
		t.Fatalf("first request for b should pass")
	}
	if ok, _, _ := limiter.Allow(context.Background(), "a"); ok {
		t.Fatalf("second request for a should be rejected")
	}
}

func TestLimiter_WindowResets(t *testing.T) {
	rdb, mr := newMiniRedis(t)
	limiter := NewLimiter(rdb, "test", 1, time.Minute)

	limiter.Allow(context.Background(), "ip")
	if ok, _, _ := limiter.Allow(context.Background(), "ip"); ok {
		t.Fatalf("expected rejection inside window")
	}

	mr.FastForward(61 * time.Second)
	if ok, _, _ := limiter.Allow(context.Background(), "ip"); !ok {
		t.Fatalf("expected request to pass after window expired")
	}
}

func TestLimiter_NilAllowsEverything(t *testing.T) {
	var limiter *Limiter
	ok, _, err := limiter.Allow(context.Background(), "x")
	if err != nil || !ok {
		t.Fatalf("nil limiter should allow, got ok=%v err=%v", ok, err)
	}
}

func newMiniRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, s
}
