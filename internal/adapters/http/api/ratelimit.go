package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// limiterCleanupThreshold is the map size above which idle clients are pruned.
	limiterCleanupThreshold = 500
	// limiterMaxIdle is how long a client may stay idle before it is pruned.
	limiterMaxIdle = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter hands out one token bucket per client IP.
type ClientRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	r       rate.Limit
	b       int
	now     func() time.Time
}

// NewClientRateLimiter allows r requests per second per client with bursts of b.
func NewClientRateLimiter(r rate.Limit, b int) *ClientRateLimiter {
	return &ClientRateLimiter{
		clients: make(map[string]*clientLimiter),
		r:       r,
		b:       b,
		now:     time.Now,
	}
}

// Allow reports whether the client may make a request now.
func (l *ClientRateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.clients) > limiterCleanupThreshold {
		cutoff := now.Add(-limiterMaxIdle)
		for k, c := range l.clients {
			if c.lastSeen.Before(cutoff) {
				delete(l.clients, k)
			}
		}
	}

	c, ok := l.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.r, l.b)}
		l.clients[client] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (l *ClientRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimitMiddleware rejects requests over the client's budget with 429.
// A nil limiter disables limiting.
func RateLimitMiddleware(next http.HandlerFunc, limiter *ClientRateLimiter) http.HandlerFunc {
	if limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !limiter.Allow(ip) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", nil)
			return
		}
		next(w, r)
	}
}
