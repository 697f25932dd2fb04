package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/claudiator/server-go/internal/database"
	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/util"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db.DB
}

func ts(t time.Time) string {
	return util.FormatTimestamp(t)
}

func seedSession(t *testing.T, db *sqlx.DB, deviceID, sessionID string, at time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, NewDeviceRepository(db).Upsert(ctx, model.DeviceInfo{
		DeviceID: deviceID, DeviceName: "Laptop", Platform: "macos",
	}, ts(at)))
	require.NoError(t, NewSessionRepository(db).Upsert(ctx, model.UpsertSessionParams{
		SessionID: sessionID, DeviceID: deviceID, Now: ts(at),
	}))
}

func seedEvent(t *testing.T, db *sqlx.DB, deviceID, sessionID string, at time.Time) int64 {
	t.Helper()
	id, err := NewEventRepository(db).Insert(context.Background(), model.Event{
		DeviceID:      deviceID,
		SessionID:     sessionID,
		HookEventName: model.HookStop,
		Timestamp:     at.Format(time.RFC3339),
		ReceivedAt:    ts(at),
		EventJSON:     `{"session_id":"` + sessionID + `","hook_event_name":"Stop","message":"done"}`,
	})
	require.NoError(t, err)
	return id
}

func strPtr(s string) *string {
	return &s
}
