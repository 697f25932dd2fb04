package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/util"
)

type EventRepository interface {
	// Insert stores the event and returns its id.
	Insert(ctx context.Context, event model.Event) (int64, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]model.EventListItem, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) EventRepository
}

type eventRepo struct {
	db sqlxDB
}

func NewEventRepository(db *sqlx.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) WithTx(tx *sqlx.Tx) EventRepository {
	return &eventRepo{db: tx}
}

func (r *eventRepo) Insert(ctx context.Context, event model.Event) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, r.db.Rebind(`
		INSERT INTO events (device_id, session_id, hook_event_name, timestamp, received_at,
			tool_name, notification_type, event_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), event.DeviceID, event.SessionID, event.HookEventName, event.Timestamp, event.ReceivedAt,
		event.ToolName, event.NotificationType, event.EventJSON)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *eventRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]model.EventListItem, error) {
	var rows []model.Event
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, device_id, session_id, hook_event_name, timestamp, received_at,
			tool_name, notification_type, event_json
		FROM events
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?
	`), sessionID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]model.EventListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, model.EventListItem{
			ID:               row.ID,
			HookEventName:    row.HookEventName,
			Timestamp:        row.Timestamp,
			ToolName:         row.ToolName,
			NotificationType: row.NotificationType,
			Message:          messageFromJSON(row.EventJSON),
		})
	}
	return items, nil
}

func (r *eventRepo) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`
		SELECT COUNT(*) FROM events WHERE session_id = ?
	`), sessionID)
	return count, err
}

func (r *eventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM events WHERE received_at < ?
	`), util.FormatTimestamp(cutoff)))
}

func messageFromJSON(raw string) *string {
	var data model.EventData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}
	return data.Message
}
