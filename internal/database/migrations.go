package database

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Migration is one versioned schema step with a body per dialect.
type Migration struct {
	Version  int
	Name     string
	SQLite   string
	Postgres string
}

func (m Migration) sqlFor(d Dialect) string {
	if d == DialectPostgres {
		return m.Postgres
	}
	return m.SQLite
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQLite: `
CREATE TABLE IF NOT EXISTS devices (
    device_id   TEXT PRIMARY KEY,
    device_name TEXT NOT NULL,
    platform    TEXT NOT NULL,
    first_seen  TEXT NOT NULL,
    last_seen   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    device_id  TEXT NOT NULL REFERENCES devices(device_id),
    started_at TEXT NOT NULL,
    last_event TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'active',
    cwd        TEXT,
    title      TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_device ON sessions(device_id, last_event);
CREATE INDEX IF NOT EXISTS idx_sessions_last_event ON sessions(last_event);

CREATE TABLE IF NOT EXISTS events (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    device_id         TEXT NOT NULL REFERENCES devices(device_id),
    session_id        TEXT NOT NULL REFERENCES sessions(session_id),
    hook_event_name   TEXT NOT NULL,
    timestamp         TEXT NOT NULL,
    received_at       TEXT NOT NULL,
    tool_name         TEXT,
    notification_type TEXT,
    event_json        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, id);
CREATE INDEX IF NOT EXISTS idx_events_received ON events(received_at);

CREATE TABLE IF NOT EXISTS push_tokens (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    platform   TEXT NOT NULL,
    push_token TEXT NOT NULL UNIQUE,
    sandbox    INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
    id                TEXT PRIMARY KEY,
    event_id          INTEGER NOT NULL UNIQUE,
    session_id        TEXT NOT NULL REFERENCES sessions(session_id),
    device_id         TEXT NOT NULL,
    title             TEXT NOT NULL,
    body              TEXT NOT NULL,
    notification_type TEXT NOT NULL,
    payload_json      TEXT,
    created_at        TEXT NOT NULL,
    acknowledged      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_session ON notifications(session_id);

CREATE TABLE IF NOT EXISTS api_keys (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    key_hash   TEXT NOT NULL UNIQUE,
    key_prefix TEXT NOT NULL,
    scopes     TEXT NOT NULL,
    created_at TEXT NOT NULL,
    last_used  TEXT,
    rate_limit INTEGER
);

CREATE TABLE IF NOT EXISTS metadata (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`,
		Postgres: `
CREATE TABLE IF NOT EXISTS devices (
    device_id   TEXT PRIMARY KEY,
    device_name TEXT NOT NULL,
    platform    TEXT NOT NULL,
    first_seen  TEXT NOT NULL,
    last_seen   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    device_id  TEXT NOT NULL REFERENCES devices(device_id),
    started_at TEXT NOT NULL,
    last_event TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'active',
    cwd        TEXT,
    title      TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_device ON sessions(device_id, last_event);
CREATE INDEX IF NOT EXISTS idx_sessions_last_event ON sessions(last_event);

CREATE TABLE IF NOT EXISTS events (
    id                BIGSERIAL PRIMARY KEY,
    device_id         TEXT NOT NULL REFERENCES devices(device_id),
    session_id        TEXT NOT NULL REFERENCES sessions(session_id),
    hook_event_name   TEXT NOT NULL,
    timestamp         TEXT NOT NULL,
    received_at       TEXT NOT NULL,
    tool_name         TEXT,
    notification_type TEXT,
    event_json        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, id);
CREATE INDEX IF NOT EXISTS idx_events_received ON events(received_at);

CREATE TABLE IF NOT EXISTS push_tokens (
    id         BIGSERIAL PRIMARY KEY,
    platform   TEXT NOT NULL,
    push_token TEXT NOT NULL UNIQUE,
    sandbox    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
    id                TEXT PRIMARY KEY,
    event_id          BIGINT NOT NULL UNIQUE,
    session_id        TEXT NOT NULL REFERENCES sessions(session_id),
    device_id         TEXT NOT NULL,
    title             TEXT NOT NULL,
    body              TEXT NOT NULL,
    notification_type TEXT NOT NULL,
    payload_json      TEXT,
    created_at        TEXT NOT NULL,
    acknowledged      BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_session ON notifications(session_id);

CREATE TABLE IF NOT EXISTS api_keys (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    key_hash   TEXT NOT NULL UNIQUE,
    key_prefix TEXT NOT NULL,
    scopes     TEXT NOT NULL,
    created_at TEXT NOT NULL,
    last_used  TEXT,
    rate_limit INTEGER
);

CREATE TABLE IF NOT EXISTS metadata (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`,
	},
}

// Migrations returns the registered migrations sorted by version.
func Migrations() []Migration {
	out := append([]Migration(nil), migrations...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// Migrate applies every pending migration, each in its own transaction.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TEXT NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	var versions []int
	if err := db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations`); err != nil {
		return fmt.Errorf("query applied migrations: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	for _, m := range Migrations() {
		if applied[m.Version] {
			continue
		}
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.sqlFor(db.Dialect)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		appliedAt := time.Now().UTC().Format(time.RFC3339)
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations(version, name, applied_at) VALUES(?, ?, ?)`), m.Version, m.Name, appliedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d (%s): %w", m.Version, m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}
