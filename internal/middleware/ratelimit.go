package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
)

// Limiter counts attempts per key in fixed windows.
type Limiter interface {
	// Allow records one attempt for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter keeps counters in Redis so the limit holds across instances.
type RedisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
	prefix string
}

// NewRedisLimiter creates a limiter allowing max attempts per window.
func NewRedisLimiter(client *redis.Client, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, window: window, prefix: "fintrack:ratelimit:"}
}

// Allow increments the key's counter and starts its window if none is
// running. Both commands go out in one MULTI so a counter never outlives
// its window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", k, err)
	}
	return incr.Val() <= int64(l.max), nil
}

// MemoryLimiter keeps counters in process memory. Used when no Redis URL is configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	max     int
	window  time.Duration
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewMemoryLimiter creates a limiter allowing max attempts per window.
func NewMemoryLimiter(max int, w time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		clients: make(map[string]*window),
		max:     max,
		window:  w,
		now:     time.Now,
	}
}

// Allow records an attempt. Expired windows are dropped as they are seen.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, w := range l.clients {
		if now.Sub(w.start) >= l.window {
			delete(l.clients, k)
		}
	}

	w, ok := l.clients[key]
	if !ok {
		l.clients[key] = &window{start: now, count: 1}
		return l.max >= 1, nil
	}
	w.count++
	return w.count <= l.max, nil
}

// RateLimit rejects requests over the limit with TOO_MANY_REQUESTS. Keys
// combine client IP and route. If the limiter itself fails the request is
// let through and the failure logged.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.FullPath()
		allowed, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			logger.FromContext(c.Request.Context()).Warnw("rate limiter unavailable", "error", err, "key", key)
			c.Next()
			return
		}
		if !allowed {
			abortWithError(c, apperrors.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
