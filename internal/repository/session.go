package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/util"
)

type SessionRepository interface {
	// Upsert creates the session as active or refreshes last_event. cwd is
	// replaced only when provided; an existing title is never overwritten.
	Upsert(ctx context.Context, params model.UpsertSessionParams) error
	UpdateStatus(ctx context.Context, sessionID string, status model.SessionStatus) error
	FindByID(ctx context.Context, sessionID string) (*model.Session, error)
	Title(ctx context.Context, sessionID string) (string, error)
	ListByDevice(ctx context.Context, deviceID string, status model.SessionStatus, limit int) ([]model.Session, error)
	ListAll(ctx context.Context, params model.ListSessionsParams) ([]model.SessionWithDevice, error)
	// DeleteStale removes sessions idle since before cutoff that no event or notification references.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

type sessionRepo struct {
	db sqlxDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

const sessionColumns = `session_id, device_id, started_at, last_event, status, cwd, title`

func (r *sessionRepo) Upsert(ctx context.Context, params model.UpsertSessionParams) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO sessions (session_id, device_id, started_at, last_event, status, cwd, title)
		VALUES (?, ?, ?, ?, 'active', ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			last_event = excluded.last_event,
			cwd = COALESCE(excluded.cwd, sessions.cwd),
			title = COALESCE(sessions.title, excluded.title)
	`), params.SessionID, params.DeviceID, params.Now, params.Now, params.Cwd, params.Title)
	return err
}

func (r *sessionRepo) UpdateStatus(ctx context.Context, sessionID string, status model.SessionStatus) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE sessions SET status = ? WHERE session_id = ?
	`), status, sessionID)
	return err
}

func (r *sessionRepo) FindByID(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, r.db.Rebind(`
		SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?
	`), sessionID)
	return HandleNotFound(&session, err)
}

// Title returns the session title, or "" when the session or its title is missing.
func (r *sessionRepo) Title(ctx context.Context, sessionID string) (string, error) {
	var title *string
	err := r.db.GetContext(ctx, &title, r.db.Rebind(`
		SELECT title FROM sessions WHERE session_id = ?
	`), sessionID)
	found, err := HandleNotFound(&title, err)
	if err != nil || found == nil {
		return "", err
	}
	return model.StringValue(*found), nil
}

func (r *sessionRepo) ListByDevice(ctx context.Context, deviceID string, status model.SessionStatus, limit int) ([]model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE device_id = ?`
	args := []any{deviceID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY last_event DESC LIMIT ?`
	args = append(args, limit)

	sessions := []model.Session{}
	if err := r.db.SelectContext(ctx, &sessions, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) ListAll(ctx context.Context, params model.ListSessionsParams) ([]model.SessionWithDevice, error) {
	query := `
		SELECT s.session_id, s.device_id, s.started_at, s.last_event, s.status, s.cwd, s.title,
			d.device_name, d.platform
		FROM sessions s
		JOIN devices d ON d.device_id = s.device_id`
	where := []string{}
	args := []any{}
	if params.Status != "" {
		where = append(where, `s.status = ?`)
		args = append(args, params.Status)
	}
	if params.ExcludeEnded {
		where = append(where, `s.status <> 'ended'`)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY s.last_event DESC LIMIT ? OFFSET ?`
	args = append(args, params.Limit, params.Offset)

	sessions := []model.SessionWithDevice{}
	if err := r.db.SelectContext(ctx, &sessions, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM sessions
		WHERE last_event < ?
		  AND NOT EXISTS (SELECT 1 FROM events e WHERE e.session_id = sessions.session_id)
		  AND NOT EXISTS (SELECT 1 FROM notifications n WHERE n.session_id = sessions.session_id)
	`), util.FormatTimestamp(cutoff)))
}
