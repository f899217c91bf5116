// Package ratelimit provides a fixed-window request limiter for the webhook
// boundary. Limits are tracked in memory per caller key; a multi-instance
// deployment fronts this with its own shared limiter.
package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"docket/internal/platform/privacy"
	"docket/internal/transport/httputil"
)

// Result describes one limit decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type window struct {
	start time.Time
	count int
}

// Checker counts requests per key in fixed windows.
type Checker struct {
	limit  int
	period time.Duration

	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewChecker(limit int, period time.Duration) *Checker {
	return &Checker{
		limit:   limit,
		period:  period,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// SetClock overrides the time source for tests.
func (c *Checker) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Check records one request for the key and reports whether it is allowed.
func (c *Checker) Check(key string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || now.Sub(w.start) >= c.period {
		w = &window{start: now}
		c.windows[key] = w
	}

	w.count++
	remaining := c.limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:    w.count <= c.limit,
		Limit:      c.limit,
		Remaining:  remaining,
		RetryAfter: c.period - now.Sub(w.start),
	}
}

// Middleware limits requests per client IP and answers 429 with standard
// rate limit headers when the window is exhausted.
func Middleware(checker *Checker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			result := checker.Check(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				logger.WarnContext(r.Context(), "rate limit exceeded",
					"ip_prefix", privacy.AnonymizeIP(key),
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limited",
					"error_description": "too many requests, slow down",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
