// crushnote/models/services.go
package models

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles content creation per user. The mobile client has
// its own posts-per-day cap; this is the server-side backstop.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	every    time.Duration
	burst    int
	expire   time.Duration
}

// NewRateLimiter creates and starts a new rate limiter.
func NewRateLimiter(every time.Duration, burst int, prune, expire time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		every:    every,
		burst:    burst,
		expire:   expire,
	}
	go rl.cleanup(prune)
	return rl
}

// GetLimiter retrieves or creates the limiter for a user ID.
func (rl *RateLimiter) GetLimiter(userID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, exists := rl.limiters[userID]
	if !exists {
		limiter = rate.NewLimiter(rate.Every(rl.every), rl.burst)
		rl.limiters[userID] = limiter
	}
	rl.lastSeen[userID] = time.Now()
	return limiter
}

// cleanup periodically removes entries that have not been seen recently.
func (rl *RateLimiter) cleanup(prune time.Duration) {
	for range time.Tick(prune) {
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.expire)
		for id, lastSeen := range rl.lastSeen {
			if lastSeen.Before(cutoff) {
				delete(rl.limiters, id)
				delete(rl.lastSeen, id)
			}
		}
		rl.mu.Unlock()
	}
}
