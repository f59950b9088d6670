package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurstThenThrottle(t *testing.T) {
	rl := NewMessageRateLimiter(1, 3)

	key := "tenant-a:contact-1"
	assert.True(t, rl.Allow(key))
	assert.True(t, rl.Allow(key))
	assert.True(t, rl.Allow(key))
	assert.False(t, rl.Allow(key))
	assert.Greater(t, rl.WaitTime(key).Seconds(), 0.0)
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewMessageRateLimiter(1, 1)

	assert.True(t, rl.Allow("tenant-a:contact-1"))
	assert.False(t, rl.Allow("tenant-a:contact-1"))
	assert.True(t, rl.Allow("tenant-a:contact-2"))
	assert.True(t, rl.Allow("tenant-b:contact-1"))
}

func TestRateLimiterReset(t *testing.T) {
	rl := NewMessageRateLimiter(0.001, 1)

	key := "tenant-a:contact-1"
	assert.True(t, rl.Allow(key))
	assert.False(t, rl.Allow(key))

	rl.Reset(key)
	assert.True(t, rl.Allow(key))
}
