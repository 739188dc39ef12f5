package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter is a simple token bucket keyed by client IP, used on the HTTP
// surface only; the relay's own update throttle lives with the engine.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket // per-IP buckets
	max     int                // tokens per window
	per     time.Duration      // window size
}

type bucket struct {
	ts     time.Time // window start
	tokens int       // remaining tokens
}

// New creates a new IP-based limiter allowing max requests per window
func New(max int, per time.Duration) *Limiter {
	return &Limiter{buckets: map[string]*bucket{}, max: max, per: per}
}

// Allow consumes one token for key, starting a fresh window when the old one
// has lapsed. Stale buckets are pruned opportunistically.
func (r *Limiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.buckets[key]
	if b == nil || time.Since(b.ts) > r.per {
		// Start a new window
		b = &bucket{ts: time.Now(), tokens: r.max}
		r.buckets[key] = b
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--

	if len(r.buckets) > 10000 {
		r.prune()
	}
	return true
}

// prune drops buckets whose window has lapsed; caller holds the lock
func (r *Limiter) prune() {
	for k, b := range r.buckets {
		if time.Since(b.ts) > r.per {
			delete(r.buckets, k)
		}
	}
}

// Middleware enforces the rate limit before calling the next handler
func (r *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip, _, _ := net.SplitHostPort(req.RemoteAddr)
		if !r.Allow(ip) {
			http.Error(w, "rate limit", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}
