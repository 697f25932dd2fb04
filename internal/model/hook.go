package model

// HookEventName is the hook_event_name reported by the agent. Names outside
// the constants below are accepted and stored but never change state.
type HookEventName string

const (
	HookSessionStart      HookEventName = "SessionStart"
	HookSessionEnd        HookEventName = "SessionEnd"
	HookUserPromptSubmit  HookEventName = "UserPromptSubmit"
	HookSubagentStart     HookEventName = "SubagentStart"
	HookSubagentStop      HookEventName = "SubagentStop"
	HookStop              HookEventName = "Stop"
	HookPermissionRequest HookEventName = "PermissionRequest"
	HookNotification      HookEventName = "Notification"
	HookPreToolUse        HookEventName = "PreToolUse"
	HookPostToolUse       HookEventName = "PostToolUse"
	HookPreCompact        HookEventName = "PreCompact"
)

// Notification subtypes carried in notification_type.
const (
	NotificationTypePermissionPrompt = "permission_prompt"
	NotificationTypeIdlePrompt       = "idle_prompt"
)

var knownHooks = map[HookEventName]struct{}{
	HookSessionStart: {}, HookSessionEnd: {}, HookUserPromptSubmit: {},
	HookSubagentStart: {}, HookSubagentStop: {}, HookStop: {},
	HookPermissionRequest: {}, HookNotification: {}, HookPreToolUse: {},
	HookPostToolUse: {}, HookPreCompact: {},
}

// Known reports whether the name is one this server recognises.
func (h HookEventName) Known() bool {
	_, ok := knownHooks[h]
	return ok
}

// DeriveStatus maps an event to the session status it implies. The second
// result is false when the event leaves the status unchanged.
func DeriveStatus(name HookEventName, notificationType string) (SessionStatus, bool) {
	switch name {
	case HookSessionStart, HookUserPromptSubmit, HookSubagentStart, HookSubagentStop:
		return SessionStatusActive, true
	case HookStop:
		return SessionStatusWaitingForInput, true
	case HookSessionEnd:
		return SessionStatusEnded, true
	case HookPermissionRequest:
		return SessionStatusWaitingForPermission, true
	case HookNotification:
		switch notificationType {
		case NotificationTypePermissionPrompt:
			return SessionStatusWaitingForPermission, true
		case NotificationTypeIdlePrompt:
			return SessionStatusIdle, true
		}
	}
	return "", false
}
