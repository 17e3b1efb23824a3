package infrastructure

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// UserRateLimiter keeps one token bucket per chat so a single user
// hammering buttons cannot starve everyone else.
type UserRateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*userLimiter
	limit    rate.Limit
	burst    int
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewUserRateLimiter allows eventsPerSecond sustained with the given
// burst per user.
func NewUserRateLimiter(eventsPerSecond float64, burst int) *UserRateLimiter {
	rl := &UserRateLimiter{
		limiters: make(map[int64]*userLimiter),
		limit:    rate.Limit(eventsPerSecond),
		burst:    burst,
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether the user may proceed, consuming one token.
func (rl *UserRateLimiter) Allow(chatID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ul, ok := rl.limiters[chatID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[chatID] = ul
	}
	ul.lastSeen = time.Now()
	return ul.limiter.Allow()
}

// cleanup drops buckets idle for over ten minutes.
func (rl *UserRateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for id, ul := range rl.limiters {
			if now.Sub(ul.lastSeen) > 10*time.Minute {
				delete(rl.limiters, id)
			}
		}
		rl.mu.Unlock()
	}
}
