package model

// DeviceInfo identifies the reporting machine.
type DeviceInfo struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	Platform   string `json:"platform"`
}

// EventData holds the hook fields this server keeps. Anything else the
// agent sends is dropped at decode time and never persisted.
type EventData struct {
	SessionID        string        `json:"session_id"`
	HookEventName    HookEventName `json:"hook_event_name"`
	Cwd              *string       `json:"cwd,omitempty"`
	Prompt           *string       `json:"prompt,omitempty"`
	NotificationType *string       `json:"notification_type,omitempty"`
	ToolName         *string       `json:"tool_name,omitempty"`
	Message          *string       `json:"message,omitempty"`
}

// EventPayload is the body of POST /api/v1/events.
type EventPayload struct {
	Device    DeviceInfo `json:"device"`
	Event     EventData  `json:"event"`
	Timestamp string     `json:"timestamp"`
}

type Event struct {
	ID               int64         `db:"id" json:"id"`
	DeviceID         string        `db:"device_id" json:"device_id"`
	SessionID        string        `db:"session_id" json:"session_id"`
	HookEventName    HookEventName `db:"hook_event_name" json:"hook_event_name"`
	Timestamp        string        `db:"timestamp" json:"timestamp"`
	ReceivedAt       string        `db:"received_at" json:"received_at"`
	ToolName         *string       `db:"tool_name" json:"tool_name"`
	NotificationType *string       `db:"notification_type" json:"notification_type"`
	EventJSON        string        `db:"event_json" json:"-"`
}

// EventListItem is the listing shape for a session's events.
type EventListItem struct {
	ID               int64         `json:"id"`
	HookEventName    HookEventName `json:"hook_event_name"`
	Timestamp        string        `json:"timestamp"`
	ToolName         *string       `json:"tool_name"`
	NotificationType *string       `json:"notification_type"`
	Message          *string       `json:"message"`
}

// StringValue dereferences an optional string field.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
