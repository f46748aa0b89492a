package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/jx"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max requests per Window.
	Max    int
	Window time.Duration
	// KeyFunc picks the bucket for a request. Defaults to the client IP.
	KeyFunc func(*http.Request) string
}

// bucket counts hits in the current fixed window and remembers the previous
// window's count, which is weighted by its overlap with the sliding window.
type bucket struct {
	prev  float64
	curr  float64
	start time.Time
}

func (b *bucket) roll(now time.Time, window time.Duration) {
	switch elapsed := now.Sub(b.start); {
	case elapsed >= 2*window:
		b.prev, b.curr = 0, 0
		b.start = now.Truncate(window)
	case elapsed >= window:
		b.prev, b.curr = b.curr, 0
		b.start = now.Truncate(window)
	}
}

func (b *bucket) weight(now time.Time, window time.Duration) float64 {
	overlap := max(1-now.Sub(b.start).Seconds()/window.Seconds(), 0)
	return b.prev*overlap + b.curr
}

type rateLimiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*bucket
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = defaultKeyFunc
	}
	return &rateLimiter{cfg: cfg, buckets: make(map[string]*bucket)}
}

// allow records a hit for key if it fits under the limit.
func (rl *rateLimiter) allow(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.buckets[key]
	if b == nil {
		b = &bucket{start: now}
		rl.buckets[key] = b
	}
	b.roll(now, rl.cfg.Window)

	resetAt = b.start.Add(rl.cfg.Window)
	used := b.weight(now, rl.cfg.Window)
	if used >= float64(rl.cfg.Max) {
		return 0, resetAt, false
	}
	b.curr++
	return max(int(float64(rl.cfg.Max)-used-1), 0), resetAt, true
}

// evict drops buckets idle for two windows.
func (rl *rateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, b := range rl.buckets {
		if now.Sub(b.start) >= 2*rl.cfg.Window {
			delete(rl.buckets, key)
		}
	}
}

func (rl *rateLimiter) runEviction(ctx context.Context) {
	ticker := time.NewTicker(2 * rl.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

// RateLimit enforces a per-key sliding window limit, answering 429 with a
// JSON body once it is exceeded. Every response carries the X-RateLimit-*
// headers. Idle buckets are never evicted; long-running servers should use
// RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	return rateLimitMiddleware(rl)
}

// RateLimitWithCleanup is RateLimit plus a goroutine that evicts idle buckets
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	go rl.runEviction(ctx)
	return rateLimitMiddleware(rl)
}

func rateLimitMiddleware(rl *rateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.cfg.KeyFunc(r)
			now := time.Now()

			remaining, resetAt, allowed := rl.allow(key, now)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				retryAfter := max(time.Until(resetAt), 0)
				seconds := int(math.Ceil(retryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				writeLimited(w, seconds)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeLimited(w http.ResponseWriter, retryAfter int) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(http.StatusTooManyRequests)
	e.FieldStart("message")
	e.Str("rate limit exceeded")
	e.FieldStart("retry_after")
	e.Int(retryAfter)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write(e.Bytes())
}

// KeyByHeader limits authenticated clients per credential and everyone else
// per client IP.
func KeyByHeader(name string) func(*http.Request) string {
	return func(r *http.Request) string {
		if v := r.Header.Get(name); v != "" {
			return name + ":" + v
		}
		return defaultKeyFunc(r)
	}
}

// defaultKeyFunc extracts the client IP from the request, checking
// X-Forwarded-For first, then X-Real-IP, then falling back to RemoteAddr.
func defaultKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For may contain a comma-separated list; use the first.
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
