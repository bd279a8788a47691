package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/metrics"
)

// Policy defines a fixed-window rate limit: at most Limit requests per Window
// for each key.
type Policy struct {
	// Name identifies the limited endpoint in logs and metrics (e.g. "trigger").
	Name   string
	Window time.Duration
	Limit  int
	// Key builds the bucket key for this request. Defaults to the client IP.
	Key func(echo.Context) string
}

// Store abstracts a shared counter store (e.g., Redis) for fixed-window limiting.
type Store interface {
	// Allow increments the counter for key and reports whether the request is
	// within limit. When it is not, retryAfter is the time until the window resets.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

// KeyIP buckets requests by client IP under prefix.
func KeyIP(prefix string) func(echo.Context) string {
	return func(c echo.Context) string { return prefix + ":ip:" + c.RealIP() }
}

// Middleware enforces p with s. Store errors fail open so a Redis outage does
// not block the scheduler.
func Middleware(p Policy, s Store) echo.MiddlewareFunc {
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	if p.Limit <= 0 {
		p.Limit = 60
	}
	if p.Key == nil {
		p.Key = KeyIP(p.Name)
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := p.Key(c)
			allowed, retryAfter, err := s.Allow(c.Request().Context(), key, p.Limit, p.Window)
			if err != nil || allowed {
				return next(c)
			}
			metrics.IncRateLimitExceeded(p.Name)
			c.Logger().Warnf("rate limit exceeded: endpoint=%s key=%s limit=%d window=%s", p.Name, key, p.Limit, p.Window)
			if secs := int((retryAfter + time.Second - 1) / time.Second); secs > 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
			}
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}
	}
}

// MemoryStore is a process-local Store. Use the Redis store when several
// replicas serve the trigger endpoint.
type MemoryStore struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	start  time.Time
	window time.Duration
	count  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket), now: time.Now}
}

func (m *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Sub(m.lastSweep) >= window {
		m.sweep(now)
	}
	b, ok := m.buckets[key]
	if !ok || now.Sub(b.start) >= window {
		m.buckets[key] = &bucket{start: now, window: window, count: 1}
		return true, 0, nil
	}
	if b.count < limit {
		b.count++
		return true, 0, nil
	}
	return false, window - now.Sub(b.start), nil
}

// sweep drops buckets whose window has elapsed. Callers hold mu.
func (m *MemoryStore) sweep(now time.Time) {
	for k, b := range m.buckets {
		if now.Sub(b.start) >= b.window {
			delete(m.buckets, k)
		}
	}
	m.lastSweep = now
}
