package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserRateLimiterBurstThenThrottle(t *testing.T) {
	rl := NewUserRateLimiter(1, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(100), "burst request %d", i)
	}
	assert.False(t, rl.Allow(100), "burst exhausted")
}

func TestUserRateLimiterPerUserBuckets(t *testing.T) {
	rl := NewUserRateLimiter(1, 1)

	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))
	// A different chat has its own bucket.
	assert.True(t, rl.Allow(2))
}
