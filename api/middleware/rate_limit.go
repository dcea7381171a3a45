package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/auction-archive/api/responses"
	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
	"github.com/angelmondragon/auction-archive/pkg/logger"
)

// RateLimiterStore is a fixed-window counter; pkg/redis and MemoryCounter
// implement it.
type RateLimiterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// RateLimitPolicy defines a fixed-window limit for one traffic surface.
type RateLimitPolicy struct {
	Name   string
	Window time.Duration
	Limit  int
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && p.Limit > 0
}

func (p RateLimitPolicy) scope(subject string) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "default"
	}
	return name + ":" + subject
}

// RateLimit counts requests per session, falling back to the client IP.
func RateLimit(policy RateLimitPolicy, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			subject := "ip:" + clientIP(r)
			if sess := SessionFromContext(ctx); sess != nil {
				subject = "session:" + sess.ID
			}

			count, err := store.IncrWithTTL(ctx, store.RateLimitKey(policy.scope(subject)), policy.Window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if count > int64(policy.Limit) {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy":         policy.Name,
						"subject":        subject,
						"attempts":       count,
						"limit":          policy.Limit,
						"window_seconds": int(policy.Window.Seconds()),
					}), "rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimited, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

const counterSweepInterval = time.Minute

// MemoryCounter is a process-local fixed-window counter used when Redis is
// not configured. Expired windows are swept at most once per
// counterSweepInterval.
type MemoryCounter struct {
	mu        sync.Mutex
	now       func() time.Time
	windows   map[string]memoryWindow
	nextSweep time.Time
}

type memoryWindow struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{now: time.Now, windows: map[string]memoryWindow{}}
}

func (m *MemoryCounter) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	win, ok := m.windows[key]
	if !ok || !now.Before(win.expiresAt) {
		win = memoryWindow{expiresAt: now.Add(ttl)}
	}
	win.count++
	m.windows[key] = win
	return win.count, nil
}

// RateLimitKey mirrors the Redis client's key layout.
func (m *MemoryCounter) RateLimitKey(scope string) string {
	return "rate_limit:" + scope
}

// Len reports the number of tracked windows.
func (m *MemoryCounter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

func (m *MemoryCounter) sweep(now time.Time) {
	if now.Before(m.nextSweep) {
		return
	}
	for key, win := range m.windows {
		if !now.Before(win.expiresAt) {
			delete(m.windows, key)
		}
	}
	m.nextSweep = now.Add(counterSweepInterval)
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
