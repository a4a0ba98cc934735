// Package ratelimit limits requests per client key, either in process or
// shared through redis.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter keeps one token bucket per key
type MemoryLimiter struct {
	limit   rate.Limit
	burst   int
	clients map[string]*client
	mutex   sync.Mutex
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter allows perWindow requests per window for every key,
// refilled continuously
func NewMemoryLimiter(perWindow int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   rate.Every(window / time.Duration(perWindow)),
		burst:   perWindow,
		clients: make(map[string]*client),
	}
}

// Allow consumes one token for key
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	c, ok := m.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.clients[key] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow(), nil
}

// Prune forgets keys idle for longer than idle and returns how many were dropped
func (m *MemoryLimiter) Prune(idle time.Duration) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cutoff := time.Now().Add(-idle)
	dropped := 0
	for key, c := range m.clients {
		if c.lastSeen.Before(cutoff) {
			delete(m.clients, key)
			dropped++
		}
	}
	return dropped
}

// RedisLimiter is a fixed window counter shared by every instance using the
// same redis
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisLimiter allows limit requests per window for every key
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "quantum-chat:ratelimit",
	}
}

// Allow increments the counter of the current window for key
func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().UnixNano() / int64(r.window)
	redisKey := fmt.Sprintf("%s:%s:%d", r.prefix, key, bucket)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	return incr.Val() <= int64(r.limit), nil
}

// NewRedisClient connects to the redis at url (redis://host:port/db) and
// pings it
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
