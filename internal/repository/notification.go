package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/util"
)

type NotificationRepository interface {
	Insert(ctx context.Context, n model.Notification) error
	// ListAfter returns notifications created strictly after the cursor, oldest first.
	// An empty cursor lists from the beginning.
	ListAfter(ctx context.Context, after string, limit int) ([]model.Notification, error)
	Acknowledge(ctx context.Context, ids []string) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) NotificationRepository
}

type notificationRepo struct {
	db sqlxDB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) WithTx(tx *sqlx.Tx) NotificationRepository {
	return &notificationRepo{db: tx}
}

func (r *notificationRepo) Insert(ctx context.Context, n model.Notification) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO notifications (id, event_id, session_id, device_id, title, body,
			notification_type, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), n.ID, n.EventID, n.SessionID, n.DeviceID, n.Title, n.Body,
		n.NotificationType, n.PayloadJSON, n.CreatedAt)
	return err
}

func (r *notificationRepo) ListAfter(ctx context.Context, after string, limit int) ([]model.Notification, error) {
	query := `
		SELECT id, event_id, session_id, device_id, title, body, notification_type,
			payload_json, created_at, acknowledged
		FROM notifications`
	args := []any{}
	if after != "" {
		query += ` WHERE created_at > ?`
		args = append(args, after)
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT ?`
	args = append(args, limit)

	notifications := []model.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepo) Acknowledge(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`UPDATE notifications SET acknowledged = TRUE WHERE id IN (?)`, ids)
	if err != nil {
		return 0, err
	}
	return rowsAffected(r.db.ExecContext(ctx, r.db.Rebind(query), args...))
}

func (r *notificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM notifications WHERE created_at < ?
	`), util.FormatTimestamp(cutoff)))
}
