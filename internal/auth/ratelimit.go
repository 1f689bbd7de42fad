package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// attemptLimiter rate-limits token-validation attempts per source key,
// the same sliding-window-via-token-bucket approximation the connection
// manager uses for connect attempts.
type attemptLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	attempts int
	window   time.Duration
}

func newAttemptLimiter(attempts int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{
		limiters: make(map[string]*rate.Limiter),
		attempts: attempts,
		window:   window,
	}
}

func (l *attemptLimiter) allow(key string) bool {
	if l.attempts <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.window/time.Duration(l.attempts)), l.attempts)
		l.limiters[key] = lim
	}
	return lim.Allow()
}

// prune drops every per-source limiter sitting at a full bucket, the
// signal that its source has been idle for at least one window.
func (l *attemptLimiter) prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	dropped := 0
	for key, lim := range l.limiters {
		if lim.Tokens() >= float64(l.attempts) {
			delete(l.limiters, key)
			dropped++
		}
	}
	return dropped
}
