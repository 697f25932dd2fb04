package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *callLog) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type mockPruner struct {
	name    string
	log     *callLog
	cutoffs []time.Time
	err     error
}

func (m *mockPruner) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.log.add(m.name)
	m.cutoffs = append(m.cutoffs, cutoff)
	return 1, m.err
}

func (m *mockPruner) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.DeleteOlderThan(ctx, cutoff)
}

type fixture struct {
	job           *RetentionJob
	log           *callLog
	events        *mockPruner
	notifications *mockPruner
	sessions      *mockPruner
	devices       *mockPruner
	now           time.Time
}

func newFixture() *fixture {
	f := &fixture{log: &callLog{}, now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	f.events = &mockPruner{name: "events", log: f.log}
	f.notifications = &mockPruner{name: "notifications", log: f.log}
	f.sessions = &mockPruner{name: "sessions", log: f.log}
	f.devices = &mockPruner{name: "devices", log: f.log}
	f.job = NewRetentionJob(f.events, f.notifications, f.sessions, f.devices, RetentionPolicy{
		Events:        7 * 24 * time.Hour,
		Notifications: 24 * time.Hour,
		Sessions:      7 * 24 * time.Hour,
		Devices:       30 * 24 * time.Hour,
	}, 5*time.Minute, time.Second)
	f.job.now = func() time.Time { return f.now }
	return f
}

func TestRetentionJob_Run(t *testing.T) {
	t.Run("runs steps children first with policy cutoffs", func(t *testing.T) {
		f := newFixture()
		f.job.Run(context.Background())

		assert.Equal(t, []string{"events", "notifications", "sessions", "devices"}, f.log.get())
		assert.Equal(t, f.now.Add(-7*24*time.Hour), f.events.cutoffs[0])
		assert.Equal(t, f.now.Add(-24*time.Hour), f.notifications.cutoffs[0])
		assert.Equal(t, f.now.Add(-7*24*time.Hour), f.sessions.cutoffs[0])
		assert.Equal(t, f.now.Add(-30*24*time.Hour), f.devices.cutoffs[0])
	})

	t.Run("a failing step does not stop later steps", func(t *testing.T) {
		f := newFixture()
		f.events.err = errors.New("database is locked")
		f.sessions.err = errors.New("database is locked")
		f.job.Run(context.Background())

		assert.Equal(t, []string{"events", "notifications", "sessions", "devices"}, f.log.get())
	})
}

func TestRetentionJob_TriggerIfDue(t *testing.T) {
	f := newFixture()

	assert.True(t, f.job.TriggerIfDue())
	f.job.wg.Wait()
	assert.Len(t, f.log.get(), 4)

	f.now = f.now.Add(4 * time.Minute)
	assert.False(t, f.job.TriggerIfDue())

	f.now = f.now.Add(time.Minute)
	assert.True(t, f.job.TriggerIfDue())
	f.job.wg.Wait()
	assert.Len(t, f.log.get(), 8)
}

func TestRetentionJob_TriggerIfDue_Concurrent(t *testing.T) {
	f := newFixture()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.job.TriggerIfDue() {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	f.job.wg.Wait()

	assert.Equal(t, 1, started)
	assert.Len(t, f.log.get(), 4)
}

func TestRetentionJob_StartStop(t *testing.T) {
	f := newFixture()
	f.job.Start()
	f.job.Stop()

	assert.Len(t, f.log.get(), 4)
	// Stop is idempotent.
	f.job.Stop()
}
