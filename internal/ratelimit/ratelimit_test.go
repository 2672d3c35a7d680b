package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryAllowsUpToLimit(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(2, time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _, _ := m.Allow(ctx, "1.2.3.4"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	now = now.Add(20 * time.Second)
	ok, retry, err := m.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatal("third request should be refused")
	}
	if retry != 40*time.Second {
		t.Errorf("retryAfter = %v, want 40s", retry)
	}

	if ok, _, _ := m.Allow(ctx, "5.6.7.8"); !ok {
		t.Error("other keys have their own window")
	}

	now = now.Add(40 * time.Second)
	if ok, _, _ := m.Allow(ctx, "1.2.3.4"); !ok {
		t.Error("window should have reset")
	}
}

func TestMemoryZeroLimitDisables(t *testing.T) {
	m := NewMemory(0, time.Minute)
	for i := 0; i < 100; i++ {
		if ok, _, _ := m.Allow(context.Background(), "k"); !ok {
			t.Fatal("limit 0 should allow everything")
		}
	}
}

func TestMemorySweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(1, time.Minute)
	m.now = func() time.Time { return now }

	m.Allow(context.Background(), "a")
	m.Allow(context.Background(), "b")
	now = now.Add(2 * time.Minute)
	m.Allow(context.Background(), "c")

	if removed := m.Sweep(); removed != 2 {
		t.Errorf("Sweep removed %d, want 2", removed)
	}
	if len(m.windows) != 1 {
		t.Errorf("windows left = %d, want 1", len(m.windows))
	}
}

func TestRedisZeroLimitSkipsClient(t *testing.T) {
	r := NewRedis(nil, "rl:", 0, time.Minute)
	ok, _, err := r.Allow(context.Background(), "k")
	if err != nil || !ok {
		t.Errorf("Allow = %v, %v", ok, err)
	}
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisAllowsUpToLimit(t *testing.T) {
	mr, client := newMiniRedis(t)
	r := NewRedis(client, "rl:", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := r.Allow(ctx, "1.2.3.4")
		if err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, retry, err := r.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatal("third request should be refused")
	}
	if retry <= 0 || retry > time.Minute {
		t.Errorf("retryAfter = %v, want within (0, 1m]", retry)
	}
	if ttl := mr.TTL("rl:1.2.3.4"); ttl != time.Minute {
		t.Errorf("window ttl = %v, want 1m (later hits must not extend it)", ttl)
	}

	if ok, _, _ := r.Allow(ctx, "5.6.7.8"); !ok {
		t.Error("other keys have their own window")
	}

	mr.FastForward(time.Minute)
	if ok, _, err := r.Allow(ctx, "1.2.3.4"); err != nil || !ok {
		t.Errorf("window should have reset: ok=%v err=%v", ok, err)
	}
}

func TestRedisBudgetIsShared(t *testing.T) {
	mr, first := newMiniRedis(t)
	second, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer second.Close()

	a := NewRedis(first, "rl:", 3, time.Minute)
	b := NewRedis(second, "rl:", 3, time.Minute)
	ctx := context.Background()

	for i, l := range []Limiter{a, b, a} {
		if ok, _, err := l.Allow(ctx, "k"); err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	if ok, _, _ := b.Allow(ctx, "k"); ok {
		t.Error("fourth request through the other client should be refused")
	}
}

func TestRedisErrorIsReported(t *testing.T) {
	mr, client := newMiniRedis(t)
	r := NewRedis(client, "rl:", 1, time.Minute)
	mr.Close()

	if _, _, err := r.Allow(context.Background(), "k"); err == nil {
		t.Error("expected an error once redis is gone")
	}
}
