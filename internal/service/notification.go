package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/claudiator/server-go/internal/errors"
	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/repository"
	"github.com/claudiator/server-go/internal/util"
)

// Decision is the user-facing content of a notification.
type Decision struct {
	Title    string
	Body     string
	Category model.NotificationCategory
}

// Decide maps an event to a notification, if it warrants one. sessionTitle
// replaces the generic title when non-empty.
func Decide(ev model.EventData, sessionTitle string) (Decision, bool) {
	title := func(fallback string) string {
		if sessionTitle != "" {
			return sessionTitle
		}
		return fallback
	}
	message := model.StringValue(ev.Message)

	switch ev.HookEventName {
	case model.HookStop:
		return Decision{
			Title:    title("Session Stopped"),
			Body:     "Session stopped: " + orDefault(message, "No reason given"),
			Category: model.CategoryStop,
		}, true
	case model.HookPermissionRequest:
		return permissionDecision(title("Permission Required"), model.StringValue(ev.ToolName), message), true
	case model.HookNotification:
		switch model.StringValue(ev.NotificationType) {
		case model.NotificationTypePermissionPrompt:
			return permissionDecision(title("Permission Required"), model.StringValue(ev.ToolName), message), true
		case model.NotificationTypeIdlePrompt:
			return Decision{
				Title:    title("Session Idle"),
				Body:     "Session idle: " + orDefault(message, "Waiting for input"),
				Category: model.CategoryIdlePrompt,
			}, true
		}
	}
	return Decision{}, false
}

func permissionDecision(title, tool, message string) Decision {
	var body string
	switch {
	case tool != "" && message != "":
		body = fmt.Sprintf("Permission required: %s — %s", tool, message)
	case tool != "":
		body = "Permission required: " + tool
	case message != "":
		body = "Permission required: " + message
	default:
		body = "A session needs permission to continue"
	}
	return Decision{Title: title, Body: body, Category: model.CategoryPermissionPrompt}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Pusher delivers a stored notification to registered devices.
type Pusher interface {
	Dispatch(n model.Notification)
}

// NotifyInput identifies the committed event a notification may be raised for.
type NotifyInput struct {
	EventID  int64
	DeviceID string
	Event    model.EventData
}

type NotificationService struct {
	notifications repository.NotificationRepository
	sessions      repository.SessionRepository
	versions      *Versions
	cooldown      *Cooldown
	pusher        Pusher
	now           func() time.Time
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	sessions repository.SessionRepository,
	versions *Versions,
	cooldown *Cooldown,
	pusher Pusher,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		sessions:      sessions,
		versions:      versions,
		cooldown:      cooldown,
		pusher:        pusher,
		now:           time.Now,
	}
}

// Process runs the decision, the cooldown and persistence for one event.
// It returns nil without error when nothing is raised.
func (s *NotificationService) Process(ctx context.Context, in NotifyInput) (*model.Notification, error) {
	sessionTitle, err := s.sessions.Title(ctx, in.Event.SessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", in.Event.SessionID).Msg("failed to read session title")
	}

	decision, ok := Decide(in.Event, sessionTitle)
	if !ok {
		return nil, nil
	}

	if !s.cooldown.Allow(in.Event.SessionID, decision.Category) {
		log.Debug().
			Str("session_id", in.Event.SessionID).
			Str("category", string(decision.Category)).
			Msg("notification suppressed by cooldown")
		return nil, nil
	}

	id := uuid.NewString()
	payload, _ := json.Marshal(map[string]string{
		"notification_id": id,
		"session_id":      in.Event.SessionID,
		"device_id":       in.DeviceID,
	})
	payloadJSON := string(payload)

	n := model.Notification{
		ID:               id,
		EventID:          in.EventID,
		SessionID:        in.Event.SessionID,
		DeviceID:         in.DeviceID,
		Title:            decision.Title,
		Body:             decision.Body,
		NotificationType: decision.Category,
		PayloadJSON:      &payloadJSON,
		CreatedAt:        util.FormatTimestamp(s.now()),
	}
	if err := s.notifications.Insert(ctx, n); err != nil {
		s.cooldown.Release(n.SessionID, n.NotificationType)
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	version := s.versions.BumpNotification(ctx)
	s.versions.Announce()

	log.Info().
		Str("notification_id", n.ID).
		Str("session_id", n.SessionID).
		Str("category", string(n.NotificationType)).
		Uint64("notification_version", version).
		Msg("notification created")

	if s.pusher != nil {
		s.pusher.Dispatch(n)
	}
	return &n, nil
}

// List returns notifications created after the cursor, oldest first.
func (s *NotificationService) List(ctx context.Context, after string, limit int) ([]model.Notification, error) {
	list, err := s.notifications.ListAfter(ctx, after, limit)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list notifications: %w", err))
	}
	return list, nil
}

// Acknowledge marks notifications read. It never touches the cooldown.
func (s *NotificationService) Acknowledge(ctx context.Context, ids []string) (int64, error) {
	n, err := s.notifications.Acknowledge(ctx, ids)
	if err != nil {
		return 0, apperrors.Database(fmt.Errorf("acknowledge notifications: %w", err))
	}
	return n, nil
}
