package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// connectLimiter rate-limits per-player connection attempts with a
// sliding token bucket: attempts refill continuously over window/attempts,
// with burst allowing up to attempts immediate retries, the bucket
// approximation of "N attempts per sliding window".
type connectLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	attempts int
	window   time.Duration
}

func newConnectLimiter(attempts int, window time.Duration) *connectLimiter {
	return &connectLimiter{
		limiters: make(map[string]*rate.Limiter),
		attempts: attempts,
		window:   window,
	}
}

// allow reports whether another connection attempt for key (typically a
// player id) is permitted right now.
func (c *connectLimiter) allow(key string) bool {
	if c.attempts <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(c.window/time.Duration(c.attempts)), c.attempts)
		c.limiters[key] = lim
	}
	return lim.Allow()
}
