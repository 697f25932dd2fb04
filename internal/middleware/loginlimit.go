package middleware

import (
	"sync"
	"time"
)

type failureWindow struct {
	count       int
	windowStart time.Time
}

// FailureTracker counts failed authentications per client IP. Once an IP
// reaches max failures inside one window every request from it is refused
// until the window lapses. Successes never reset the count.
type FailureTracker struct {
	mu          sync.Mutex
	failures    map[string]*failureWindow
	max         int
	window      time.Duration
	maxEntries  int
	lastCleanup time.Time
	now         func() time.Time
}

func NewFailureTracker(max int, window time.Duration, maxEntries int) *FailureTracker {
	return &FailureTracker{
		failures:    make(map[string]*failureWindow),
		max:         max,
		window:      window,
		maxEntries:  maxEntries,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (t *FailureTracker) cleanup(now time.Time) {
	if now.Sub(t.lastCleanup) < t.window && len(t.failures) <= t.maxEntries {
		return
	}
	t.lastCleanup = now

	for ip, f := range t.failures {
		if now.Sub(f.windowStart) >= t.window {
			delete(t.failures, ip)
		}
	}
}

// Locked reports whether ip has exhausted its failures for the current window.
func (t *FailureTracker) Locked(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.failures[ip]
	if !ok {
		return false
	}
	if t.now().Sub(f.windowStart) >= t.window {
		delete(t.failures, ip)
		return false
	}
	return f.count >= t.max
}

// Record notes one failure for ip and returns the count in the current window.
func (t *FailureTracker) Record(ip string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.cleanup(now)

	f, ok := t.failures[ip]
	if !ok || now.Sub(f.windowStart) >= t.window {
		f = &failureWindow{windowStart: now}
		t.failures[ip] = f
	}
	f.count++
	return f.count
}

func (t *FailureTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.failures)
}
