package model

type SessionStatus string

const (
	SessionStatusActive               SessionStatus = "active"
	SessionStatusWaitingForInput      SessionStatus = "waiting_for_input"
	SessionStatusWaitingForPermission SessionStatus = "waiting_for_permission"
	SessionStatusIdle                 SessionStatus = "idle"
	SessionStatusEnded                SessionStatus = "ended"
)

// SessionStatuses lists every status a session can hold.
var SessionStatuses = []string{
	string(SessionStatusActive),
	string(SessionStatusWaitingForInput),
	string(SessionStatusWaitingForPermission),
	string(SessionStatusIdle),
	string(SessionStatusEnded),
}

type Scope string

const (
	ScopeRead  Scope = "read"
	ScopeWrite Scope = "write"
)

// NotificationCategory is both the stored notification_type and the cooldown key.
type NotificationCategory string

const (
	CategoryStop             NotificationCategory = "stop"
	CategoryPermissionPrompt NotificationCategory = "permission_prompt"
	CategoryIdlePrompt       NotificationCategory = "idle_prompt"
)
