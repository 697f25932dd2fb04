package model

type Device struct {
	DeviceID       string `db:"device_id" json:"device_id"`
	DeviceName     string `db:"device_name" json:"device_name"`
	Platform       string `db:"platform" json:"platform"`
	FirstSeen      string `db:"first_seen" json:"first_seen"`
	LastSeen       string `db:"last_seen" json:"last_seen"`
	ActiveSessions int    `db:"active_sessions" json:"active_sessions"`
}
