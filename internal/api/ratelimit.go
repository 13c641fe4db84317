package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter caps mutating requests per session
// ARCHITECTURAL DISCOVERY: Per-session state with periodic cleanup so ended sessions
// do not accumulate
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*clientLimit
	now     func() time.Time
}

// clientLimit tracks one session's fixed window
type clientLimit struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter allows limit requests per window for each key. A limit of 0 allows everything.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientLimit),
		now:     time.Now,
	}
}

// Allow records a request for key and reports whether it is within the limit
func (rl *RateLimiter) Allow(key string) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	client, exists := rl.clients[key]
	if !exists || now.Sub(client.windowStart) >= rl.window {
		rl.clients[key] = &clientLimit{count: 1, windowStart: now}
		return true
	}

	if client.count >= rl.limit {
		return false
	}
	client.count++
	return true
}

// Cleanup drops keys idle for five windows and returns how many were removed
func (rl *RateLimiter) Cleanup() int {
	if rl == nil {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, client := range rl.clients {
		if now.Sub(client.windowStart) > 5*rl.window {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// Forget drops the state for key, e.g. when its session ends
func (rl *RateLimiter) Forget(key string) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.clients, key)
}

// limitSession wraps a session-scoped handler with the rate limiter keyed on {id}
func (s *Server) limitSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(r.PathValue("id")) {
			w.Header().Set("Retry-After", strconv.Itoa(int(s.limiter.window/time.Second)))
			s.sendError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests for this session, slow down.")
			return
		}
		next(w, r)
	}
}
