package middleware

import (
	"context"
	"sync"
	"time"
)

// KeyLimiter enforces the per-key request quota.
type KeyLimiter interface {
	Allow(ctx context.Context, keyID string, limit int) bool
}

type windowEntry struct {
	count       int
	windowStart time.Time
}

// WindowLimiter is an in-process fixed-window counter. A window that has
// expired is reset wholesale on the next request.
type WindowLimiter struct {
	mu          sync.Mutex
	store       map[string]*windowEntry
	window      time.Duration
	maxEntries  int
	lastCleanup time.Time
	now         func() time.Time
}

func NewWindowLimiter(window time.Duration, maxEntries int) *WindowLimiter {
	return &WindowLimiter{
		store:       make(map[string]*windowEntry),
		window:      window,
		maxEntries:  maxEntries,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (rl *WindowLimiter) cleanup(now time.Time) {
	if now.Sub(rl.lastCleanup) < rl.window && len(rl.store) <= rl.maxEntries {
		return
	}
	rl.lastCleanup = now

	for key, entry := range rl.store {
		if now.Sub(entry.windowStart) >= rl.window {
			delete(rl.store, key)
		}
	}
}

func (rl *WindowLimiter) Allow(_ context.Context, keyID string, limit int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.cleanup(now)

	entry, ok := rl.store[keyID]
	if !ok || now.Sub(entry.windowStart) >= rl.window {
		entry = &windowEntry{windowStart: now}
		rl.store[keyID] = entry
	}

	if entry.count >= limit {
		return false
	}
	entry.count++
	return true
}
