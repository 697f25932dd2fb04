package model

type Notification struct {
	ID               string               `db:"id" json:"id"`
	EventID          int64                `db:"event_id" json:"event_id"`
	SessionID        string               `db:"session_id" json:"session_id"`
	DeviceID         string               `db:"device_id" json:"device_id"`
	Title            string               `db:"title" json:"title"`
	Body             string               `db:"body" json:"body"`
	NotificationType NotificationCategory `db:"notification_type" json:"notification_type"`
	PayloadJSON      *string              `db:"payload_json" json:"payload_json,omitempty"`
	CreatedAt        string               `db:"created_at" json:"created_at"`
	Acknowledged     bool                 `db:"acknowledged" json:"acknowledged"`
}

type AckNotificationsRequest struct {
	IDs []string `json:"ids"`
}
