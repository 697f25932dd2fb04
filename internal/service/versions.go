package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/claudiator/server-go/internal/repository"
)

// VersionSnapshot is what clients poll to detect changes.
type VersionSnapshot struct {
	DataVersion         uint64 `json:"data_version"`
	NotificationVersion uint64 `json:"notification_version"`
}

// VersionListener is told about every counter change.
type VersionListener interface {
	PublishVersions(VersionSnapshot)
}

// Versions owns the two change counters. They only grow; the metadata table
// mirrors them so they survive restarts.
type Versions struct {
	data         atomic.Uint64
	notification atomic.Uint64
	metadata     repository.MetadataRepository

	mu        sync.RWMutex
	listeners []VersionListener
}

func NewVersions(metadata repository.MetadataRepository) *Versions {
	return &Versions{metadata: metadata}
}

// Load seeds the counters from persisted metadata.
func (v *Versions) Load(ctx context.Context) error {
	data, err := v.metadata.GetCounter(ctx, repository.MetaDataVersion)
	if err != nil {
		return fmt.Errorf("load data_version: %w", err)
	}
	notif, err := v.metadata.GetCounter(ctx, repository.MetaNotificationVersion)
	if err != nil {
		return fmt.Errorf("load notification_version: %w", err)
	}
	v.data.Store(data)
	v.notification.Store(notif)
	log.Info().Uint64("data_version", data).Uint64("notification_version", notif).Msg("versions loaded")
	return nil
}

func (v *Versions) AddListener(l VersionListener) {
	v.mu.Lock()
	v.listeners = append(v.listeners, l)
	v.mu.Unlock()
}

func (v *Versions) Snapshot() VersionSnapshot {
	return VersionSnapshot{
		DataVersion:         v.data.Load(),
		NotificationVersion: v.notification.Load(),
	}
}

// NextData increments data_version and returns the new value.
func (v *Versions) NextData() uint64 {
	return v.data.Add(1)
}

// ReleaseData hands back a data_version taken by NextData whose write did
// not commit. It is a no-op once a later value has been handed out.
func (v *Versions) ReleaseData(n uint64) {
	v.data.CompareAndSwap(n, n-1)
}

// BumpNotification increments notification_version and persists it.
func (v *Versions) BumpNotification(ctx context.Context) uint64 {
	n := v.notification.Add(1)
	if err := v.metadata.RaiseCounter(ctx, repository.MetaNotificationVersion, n); err != nil {
		log.Error().Err(err).Uint64("notification_version", n).Msg("failed to persist notification_version")
	}
	return n
}

// Announce pushes the current snapshot to listeners.
func (v *Versions) Announce() {
	snap := v.Snapshot()
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, l := range v.listeners {
		l.PublishVersions(snap)
	}
}
