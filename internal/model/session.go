package model

type Session struct {
	SessionID string        `db:"session_id" json:"session_id"`
	DeviceID  string        `db:"device_id" json:"device_id"`
	StartedAt string        `db:"started_at" json:"started_at"`
	LastEvent string        `db:"last_event" json:"last_event"`
	Status    SessionStatus `db:"status" json:"status"`
	Cwd       *string       `db:"cwd" json:"cwd"`
	Title     *string       `db:"title" json:"title"`
}

// SessionWithDevice is a session joined with its device for cross-device listings.
type SessionWithDevice struct {
	Session
	DeviceName string `db:"device_name" json:"device_name"`
	Platform   string `db:"platform" json:"platform"`
}

type UpsertSessionParams struct {
	SessionID string
	DeviceID  string
	Now       string
	Cwd       *string
	Title     *string
}

type ListSessionsParams struct {
	Status       SessionStatus
	Limit        int
	Offset       int
	ExcludeEnded bool
}
