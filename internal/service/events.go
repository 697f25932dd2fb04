package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/claudiator/server-go/internal/config"
	"github.com/claudiator/server-go/internal/database"
	apperrors "github.com/claudiator/server-go/internal/errors"
	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/repository"
	"github.com/claudiator/server-go/internal/util"
)

// RetentionTrigger starts a retention pass when enough time has passed since the last one.
type RetentionTrigger interface {
	TriggerIfDue() bool
}

type IngestResult struct {
	EventID      int64
	DataVersion  uint64
	Notification *model.Notification
}

type EventService struct {
	db            *database.DB
	devices       repository.DeviceRepository
	sessions      repository.SessionRepository
	events        repository.EventRepository
	metadata      repository.MetadataRepository
	notifications *NotificationService
	versions      *Versions
	retention     RetentionTrigger
	now           func() time.Time
}

func NewEventService(
	db *database.DB,
	devices repository.DeviceRepository,
	sessions repository.SessionRepository,
	events repository.EventRepository,
	metadata repository.MetadataRepository,
	notifications *NotificationService,
	versions *Versions,
	retention RetentionTrigger,
) *EventService {
	return &EventService{
		db:            db,
		devices:       devices,
		sessions:      sessions,
		events:        events,
		metadata:      metadata,
		notifications: notifications,
		versions:      versions,
		retention:     retention,
		now:           time.Now,
	}
}

// ValidatePayload checks the required fields of an incoming event.
func ValidatePayload(p model.EventPayload) error {
	switch {
	case p.Device.DeviceID == "":
		return apperrors.MissingRequired("device_id")
	case p.Event.SessionID == "":
		return apperrors.MissingRequired("session_id")
	case p.Event.HookEventName == "":
		return apperrors.MissingRequired("hook_event_name")
	}
	if _, err := util.ParseRFC3339(p.Timestamp); err != nil {
		return apperrors.BadRequest("timestamp must be valid RFC 3339")
	}
	return nil
}

// Ingest records one event. Device, session, event and data_version are
// written in a single transaction; notification and retention work that
// follows the commit never fails the call.
func (s *EventService) Ingest(ctx context.Context, p model.EventPayload) (*IngestResult, error) {
	if err := ValidatePayload(p); err != nil {
		return nil, err
	}

	eventJSON, err := json.Marshal(p.Event)
	if err != nil {
		return nil, apperrors.Internal("Internal server error").WithCause(fmt.Errorf("marshal event: %w", err))
	}

	now := util.FormatTimestamp(s.now())
	ev := p.Event
	notificationType := model.StringValue(ev.NotificationType)

	var result IngestResult
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.devices.WithTx(tx).Upsert(ctx, p.Device, now); err != nil {
			return fmt.Errorf("upsert device: %w", err)
		}

		sessions := s.sessions.WithTx(tx)
		if err := sessions.Upsert(ctx, model.UpsertSessionParams{
			SessionID: ev.SessionID,
			DeviceID:  p.Device.DeviceID,
			Now:       now,
			Cwd:       ev.Cwd,
			Title:     sessionTitle(ev),
		}); err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		if status, ok := model.DeriveStatus(ev.HookEventName, notificationType); ok {
			if err := sessions.UpdateStatus(ctx, ev.SessionID, status); err != nil {
				return fmt.Errorf("update session status: %w", err)
			}
		}

		id, err := s.events.WithTx(tx).Insert(ctx, model.Event{
			DeviceID:         p.Device.DeviceID,
			SessionID:        ev.SessionID,
			HookEventName:    ev.HookEventName,
			Timestamp:        p.Timestamp,
			ReceivedAt:       now,
			ToolName:         ev.ToolName,
			NotificationType: ev.NotificationType,
			EventJSON:        string(eventJSON),
		})
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		result.EventID = id

		result.DataVersion = s.versions.NextData()
		if err := s.metadata.WithTx(tx).RaiseCounter(ctx, repository.MetaDataVersion, result.DataVersion); err != nil {
			return fmt.Errorf("persist data_version: %w", err)
		}
		return nil
	})
	if err != nil {
		if result.DataVersion != 0 {
			s.versions.ReleaseData(result.DataVersion)
		}
		return nil, apperrors.Database(err)
	}
	s.versions.Announce()

	post := context.WithoutCancel(ctx)
	n, err := s.notifications.Process(post, NotifyInput{
		EventID:  result.EventID,
		DeviceID: p.Device.DeviceID,
		Event:    ev,
	})
	if err != nil {
		log.Error().Err(err).Int64("event_id", result.EventID).Msg("notification processing failed")
	}
	result.Notification = n

	if s.retention != nil {
		s.retention.TriggerIfDue()
	}

	log.Info().
		Str("device_id", p.Device.DeviceID).
		Str("session_id", ev.SessionID).
		Str("hook_event_name", string(ev.HookEventName)).
		Bool("known_event", ev.HookEventName.Known()).
		Bool("notified", n != nil).
		Uint64("data_version", result.DataVersion).
		Msg("Event ingested")

	return &result, nil
}

// sessionTitle derives a title from the first prompt of a session.
func sessionTitle(ev model.EventData) *string {
	if ev.HookEventName != model.HookUserPromptSubmit || ev.Prompt == nil {
		return nil
	}
	if strings.TrimSpace(*ev.Prompt) == "" {
		return nil
	}
	title := util.Ellipsize(*ev.Prompt, config.MaxTitleBytes)
	return &title
}
