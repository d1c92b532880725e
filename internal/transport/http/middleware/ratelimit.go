package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"opscore/internal/transport/http/api"
	"opscore/internal/transport/http/shared"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*Limiter)

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(l *Limiter) {
		if fn != nil {
			l.keyFn = fn
		}
	}
}

func withClock(now func() time.Time) RateLimitOption {
	return func(l *Limiter) {
		l.now = now
	}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

type window struct {
	used    int
	resetAt time.Time
}

// Limiter counts calls per key in fixed windows. Expired windows are dropped once per
// window length so idle callers do not accumulate.
type Limiter struct {
	mu        sync.Mutex
	limit     int
	period    time.Duration
	keyFn     RateLimitKeyFunc
	now       func() time.Time
	windows   map[string]*window
	nextPrune time.Time
}

func NewLimiter(limit int, period time.Duration, opts ...RateLimitOption) *Limiter {
	l := &Limiter{
		limit:   limit,
		period:  period,
		keyFn:   actorOrIPKey,
		now:     time.Now,
		windows: map[string]*window{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Allow(key string) Decision {
	if l.limit <= 0 {
		return Decision{Allowed: true, Remaining: -1}
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextPrune) {
		for k, w := range l.windows {
			if !now.Before(w.resetAt) {
				delete(l.windows, k)
			}
		}
		l.nextPrune = now.Add(l.period)
	}

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.windows[key] = w
	}
	w.used++
	return Decision{
		Allowed:   w.used <= l.limit,
		Remaining: max(l.limit-w.used, 0),
		ResetIn:   w.resetAt.Sub(now),
	}
}

// RateLimit rejects callers over limit requests per period with 429. Callers are keyed by
// user id, falling back to client IP.
func RateLimit(limit int, period time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	l := NewLimiter(limit, period, opts...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := l.keyFn(r)
			if key == "" {
				key = "ip:" + shared.ClientIP(r)
			}
			d := l.Allow(key)
			if d.Remaining < 0 {
				next.ServeHTTP(w, r)
				return
			}

			resetSec := ceilSeconds(d.ResetIn)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSec))
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(max(resetSec, 1)))
				slog.Warn("rate limit exceeded", "key", key, "method", r.Method, "path", r.URL.Path, "limit", l.limit)
				api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return "ip:" + shared.ClientIP(r)
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
