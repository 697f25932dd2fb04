package service

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/repository"
)

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) Upsert(ctx context.Context, params model.UpsertSessionParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockSessionRepo) UpdateStatus(ctx context.Context, sessionID string, status model.SessionStatus) error {
	return m.Called(ctx, sessionID, status).Error(0)
}

func (m *mockSessionRepo) FindByID(ctx context.Context, sessionID string) (*model.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) Title(ctx context.Context, sessionID string) (string, error) {
	args := m.Called(ctx, sessionID)
	return args.String(0), args.Error(1)
}

func (m *mockSessionRepo) ListByDevice(ctx context.Context, deviceID string, status model.SessionStatus, limit int) ([]model.Session, error) {
	args := m.Called(ctx, deviceID, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockSessionRepo) ListAll(ctx context.Context, params model.ListSessionsParams) ([]model.SessionWithDevice, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SessionWithDevice), args.Error(1)
}

func (m *mockSessionRepo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Insert(ctx context.Context, n model.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotificationRepo) ListAfter(ctx context.Context, after string, limit int) ([]model.Notification, error) {
	args := m.Called(ctx, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Notification), args.Error(1)
}

func (m *mockNotificationRepo) Acknowledge(ctx context.Context, ids []string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationRepo) WithTx(tx *sqlx.Tx) repository.NotificationRepository {
	return m
}

// memMetadataRepo keeps counters in memory.
type memMetadataRepo struct {
	mu     sync.Mutex
	values map[string]uint64
	err    error
}

func newMemMetadataRepo() *memMetadataRepo {
	return &memMetadataRepo{values: map[string]uint64{}}
}

func (m *memMetadataRepo) GetCounter(ctx context.Context, key string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], m.err
}

func (m *memMetadataRepo) RaiseCounter(ctx context.Context, key string, value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if value > m.values[key] {
		m.values[key] = value
	}
	return nil
}

func (m *memMetadataRepo) WithTx(tx *sqlx.Tx) repository.MetadataRepository {
	return m
}

type mockAPIKeyRepo struct {
	mock.Mock
}

func (m *mockAPIKeyRepo) Create(ctx context.Context, key model.APIKey) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockAPIKeyRepo) FindByHash(ctx context.Context, keyHash string) (*model.APIKey, error) {
	args := m.Called(ctx, keyHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *mockAPIKeyRepo) List(ctx context.Context) ([]model.APIKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.APIKey), args.Error(1)
}

func (m *mockAPIKeyRepo) Delete(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAPIKeyRepo) TouchLastUsed(ctx context.Context, id, now string) error {
	return m.Called(ctx, id, now).Error(0)
}

func (m *mockAPIKeyRepo) WithTx(tx *sqlx.Tx) repository.APIKeyRepository {
	return m
}

type recordingPusher struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (p *recordingPusher) Dispatch(n model.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
}

func (p *recordingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type recordingListener struct {
	mu        sync.Mutex
	snapshots []VersionSnapshot
}

func (l *recordingListener) PublishVersions(s VersionSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshots = append(l.snapshots, s)
}

func (l *recordingListener) last() VersionSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.snapshots) == 0 {
		return VersionSnapshot{}
	}
	return l.snapshots[len(l.snapshots)-1]
}

func strPtr(s string) *string {
	return &s
}
