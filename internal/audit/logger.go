package audit

import (
	"context"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventAuthFailure      EventType = "auth_failure"
	EventIPLockedOut      EventType = "ip_locked_out"
	EventScopeDenied      EventType = "scope_denied"
	EventRateLimitExceed  EventType = "rate_limit_exceeded"
	EventAdminDenied      EventType = "admin_denied"
	EventAPIKeyCreate     EventType = "api_key_create"
	EventAPIKeyDelete     EventType = "api_key_delete"
	EventPushTokenRemoved EventType = "push_token_removed"
)

type Event struct {
	Type      EventType
	KeyID     string
	IP        string
	UserAgent string
	Details   map[string]interface{}
}

// denial reports whether the event records a refused request. Denials are
// logged at warn so they surface at the default level alongside errors.
func (t EventType) denial() bool {
	switch t {
	case EventAuthFailure, EventIPLockedOut, EventScopeDenied, EventRateLimitExceed, EventAdminDenied:
		return true
	}
	return false
}

func Log(ctx context.Context, event Event) {
	fields := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type))
	if event.KeyID != "" {
		fields = fields.Str("key_id", event.KeyID)
	}
	if event.IP != "" {
		fields = fields.Str("ip", event.IP)
	}
	if event.UserAgent != "" {
		fields = fields.Str("user_agent", event.UserAgent)
	}
	if id := chimiddleware.GetReqID(ctx); id != "" {
		fields = fields.Str("requestId", id)
	}
	logger := fields.Logger()

	entry := logger.Info()
	if event.Type.denial() {
		entry = logger.Warn()
	}
	for k, v := range event.Details {
		entry = addField(entry, k, v)
	}
	entry.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = ClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

// UnknownClient is the shared bucket for requests without forwarding headers.
const UnknownClient = "unknown"

// ClientIP identifies the caller for lockout and audit purposes: the first
// X-Forwarded-For hop, then X-Real-IP, then a shared fallback bucket.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return UnknownClient
}
