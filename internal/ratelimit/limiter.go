package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter tracks a token bucket per client. Asking the bridge is expensive
// (each request monopolizes the browser for minutes), so the ceiling is
// low and enforced before a request can queue for the session slot.
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewLimiter allows requestsPerHour sustained requests per client with the
// given burst.
func NewLimiter(requestsPerHour, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(requestsPerHour) / 3600.0),
		burst:    burst,
	}
}

func (l *Limiter) get(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[client]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[client] = limiter
	}
	return limiter
}

// Allow reports whether the client may make a request now.
func (l *Limiter) Allow(client string) bool {
	return l.get(client).Allow()
}

// Tokens returns the client's remaining burst capacity.
func (l *Limiter) Tokens(client string) float64 {
	return l.get(client).Tokens()
}
