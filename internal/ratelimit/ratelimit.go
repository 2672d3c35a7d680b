// Package ratelimit bounds how often a client may hit a public write endpoint.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether another request under key fits the current window.
type Limiter interface {
	// Allow counts one request and reports whether it is permitted. When it is
	// not, retryAfter is how long until the window resets.
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// Memory is a fixed-window limiter held in process memory.
type Memory struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*bucket
}

type bucket struct {
	start time.Time
	count int
}

// NewMemory allows limit requests per key per window. A limit of 0 disables
// limiting.
func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*bucket),
	}
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if m.limit <= 0 {
		return true, 0, nil
	}

	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.windows[key]
	if !ok || now.Sub(b.start) >= m.window {
		b = &bucket{start: now}
		m.windows[key] = b
	}
	if b.count >= m.limit {
		return false, b.start.Add(m.window).Sub(now), nil
	}
	b.count++
	return true, 0, nil
}

// Sweep drops windows that have expired, so idle clients do not accumulate.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, b := range m.windows {
		if now.Sub(b.start) >= m.window {
			delete(m.windows, k)
			removed++
		}
	}
	return removed
}

// Redis is a fixed-window limiter shared by every instance pointed at the
// same Redis.
type Redis struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedis allows limit requests per key per window, with keys stored under
// prefix.
func NewRedis(client *redis.Client, prefix string, limit int, window time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if r.limit <= 0 {
		return true, 0, nil
	}

	k := r.prefix + key
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, r.window)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", k, err)
	}

	if incr.Val() > int64(r.limit) {
		wait := ttl.Val()
		if wait < 0 {
			wait = r.window
		}
		return false, wait, nil
	}
	return true, 0, nil
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}
