package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows exactly limit requests per window", func(t *testing.T) {
		limiter := NewWindowLimiter(time.Minute, 100)
		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow(ctx, "key-1", 5))
		}
		assert.False(t, limiter.Allow(ctx, "key-1", 5))
	})

	t.Run("tracks keys separately", func(t *testing.T) {
		limiter := NewWindowLimiter(time.Minute, 100)
		for i := 0; i < 5; i++ {
			limiter.Allow(ctx, "key-a", 5)
		}
		assert.True(t, limiter.Allow(ctx, "key-b", 5))
	})

	t.Run("resets wholesale after the window", func(t *testing.T) {
		clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		limiter := NewWindowLimiter(time.Minute, 100)
		limiter.now = clock.Now

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow(ctx, "key", 3))
		}
		clock.Advance(59 * time.Second)
		assert.False(t, limiter.Allow(ctx, "key", 3))

		clock.Advance(time.Second)
		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow(ctx, "key", 3))
		}
		assert.False(t, limiter.Allow(ctx, "key", 3))
	})

	t.Run("evicts expired windows", func(t *testing.T) {
		clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		limiter := NewWindowLimiter(time.Minute, 100)
		limiter.now = clock.Now
		limiter.lastCleanup = clock.t

		limiter.Allow(ctx, "old", 10)
		clock.Advance(2 * time.Minute)
		limiter.Allow(ctx, "new", 10)

		limiter.mu.Lock()
		defer limiter.mu.Unlock()
		assert.NotContains(t, limiter.store, "old")
		assert.Contains(t, limiter.store, "new")
	})
}
