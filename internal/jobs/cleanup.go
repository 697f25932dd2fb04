package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

type olderThanDeleter interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type staleDeleter interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionPolicy holds the age limits for each table.
type RetentionPolicy struct {
	Events        time.Duration
	Notifications time.Duration
	Sessions      time.Duration
	Devices       time.Duration
}

// RetentionJob purges old rows, children before parents. Runs are gated so
// at most one starts per interval, whether triggered by ingestion or by the
// background ticker.
type RetentionJob struct {
	events        olderThanDeleter
	notifications olderThanDeleter
	sessions      staleDeleter
	devices       staleDeleter
	policy        RetentionPolicy
	interval      time.Duration
	timeout       time.Duration

	lastRun atomic.Int64
	wg      sync.WaitGroup
	done    chan struct{}
	once    sync.Once
	now     func() time.Time
}

func NewRetentionJob(
	events olderThanDeleter,
	notifications olderThanDeleter,
	sessions staleDeleter,
	devices staleDeleter,
	policy RetentionPolicy,
	interval time.Duration,
	timeout time.Duration,
) *RetentionJob {
	return &RetentionJob{
		events:        events,
		notifications: notifications,
		sessions:      sessions,
		devices:       devices,
		policy:        policy,
		interval:      interval,
		timeout:       timeout,
		done:          make(chan struct{}),
		now:           time.Now,
	}
}

// TriggerIfDue claims the gate and starts a pass in the background. It
// reports whether a pass was started.
func (j *RetentionJob) TriggerIfDue() bool {
	now := j.now().UnixNano()
	last := j.lastRun.Load()
	if last != 0 && time.Duration(now-last) < j.interval {
		return false
	}
	if !j.lastRun.CompareAndSwap(last, now) {
		return false
	}

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		j.Run(ctx)
	}()
	return true
}

// Run executes one pass synchronously. A failing step is logged and the
// remaining steps still run.
func (j *RetentionJob) Run(ctx context.Context) {
	now := j.now()

	j.runCleanup(ctx, "events", now.Add(-j.policy.Events), j.events.DeleteOlderThan)
	j.runCleanup(ctx, "notifications", now.Add(-j.policy.Notifications), j.notifications.DeleteOlderThan)
	j.runCleanup(ctx, "sessions", now.Add(-j.policy.Sessions), j.sessions.DeleteStale)
	j.runCleanup(ctx, "devices", now.Add(-j.policy.Devices), j.devices.DeleteStale)
}

func (j *RetentionJob) runCleanup(ctx context.Context, name string, cutoff time.Time, fn func(context.Context, time.Time) (int64, error)) {
	count, err := fn(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Time("cutoff", cutoff).Msgf("cleaned up %s", name)
	}
}

// Start runs the gate on a ticker so an idle server still purges.
func (j *RetentionJob) Start() {
	j.wg.Add(1)
	go j.loop()
	log.Info().Dur("interval", j.interval).Msg("retention job started")
}

func (j *RetentionJob) loop() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.TriggerIfDue()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.TriggerIfDue()
		}
	}
}

// Stop ends the ticker and waits for any pass in progress.
func (j *RetentionJob) Stop() {
	j.once.Do(func() { close(j.done) })
	j.wg.Wait()
	log.Info().Msg("retention job stopped")
}
