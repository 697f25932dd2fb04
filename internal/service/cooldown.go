package service

import (
	"sync"
	"time"

	"github.com/claudiator/server-go/internal/model"
)

type cooldownKey struct {
	sessionID string
	category  model.NotificationCategory
}

// Cooldown suppresses repeat notifications of one category for one session
// inside a fixed window. Permission prompts are never suppressed.
type Cooldown struct {
	mu     sync.Mutex
	last   map[cooldownKey]time.Time
	window time.Duration
	now    func() time.Time
}

func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		last:   make(map[cooldownKey]time.Time),
		window: window,
		now:    time.Now,
	}
}

// Allow reports whether a notification may fire now and, if so, records it.
// A suppressed call does not extend the window.
func (c *Cooldown) Allow(sessionID string, category model.NotificationCategory) bool {
	if category == model.CategoryPermissionPrompt {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, t := range c.last {
		if now.Sub(t) >= c.window {
			delete(c.last, k)
		}
	}

	key := cooldownKey{sessionID: sessionID, category: category}
	if _, ok := c.last[key]; ok {
		return false
	}
	c.last[key] = now
	return true
}

// Release forgets the bucket recorded by Allow, for when the notification it
// admitted was never stored.
func (c *Cooldown) Release(sessionID string, category model.NotificationCategory) {
	c.mu.Lock()
	delete(c.last, cooldownKey{sessionID: sessionID, category: category})
	c.mu.Unlock()
}

// Len returns the number of live entries.
func (c *Cooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.last)
}
