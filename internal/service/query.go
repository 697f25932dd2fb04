package service

import (
	"context"
	"fmt"

	apperrors "github.com/claudiator/server-go/internal/errors"
	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/repository"
)

// SessionPage is one page of the cross-device session listing.
type SessionPage struct {
	Sessions   []model.SessionWithDevice `json:"sessions"`
	HasMore    bool                      `json:"has_more"`
	NextOffset *int                      `json:"next_offset"`
}

// QueryService serves the read-only views.
type QueryService struct {
	devices  repository.DeviceRepository
	sessions repository.SessionRepository
	events   repository.EventRepository
}

func NewQueryService(
	devices repository.DeviceRepository,
	sessions repository.SessionRepository,
	events repository.EventRepository,
) *QueryService {
	return &QueryService{devices: devices, sessions: sessions, events: events}
}

func (s *QueryService) Devices(ctx context.Context) ([]model.Device, error) {
	devices, err := s.devices.List(ctx)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list devices: %w", err))
	}
	return devices, nil
}

func (s *QueryService) DeviceSessions(ctx context.Context, deviceID string, status model.SessionStatus, limit int) ([]model.Session, error) {
	sessions, err := s.sessions.ListByDevice(ctx, deviceID, status, limit)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list device sessions: %w", err))
	}
	return sessions, nil
}

// Sessions fetches one extra row to learn whether another page exists.
func (s *QueryService) Sessions(ctx context.Context, params model.ListSessionsParams) (*SessionPage, error) {
	limit := params.Limit
	params.Limit = limit + 1
	sessions, err := s.sessions.ListAll(ctx, params)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list sessions: %w", err))
	}

	page := &SessionPage{Sessions: sessions}
	if len(sessions) > limit {
		page.Sessions = sessions[:limit]
		page.HasMore = true
		next := params.Offset + limit
		page.NextOffset = &next
	}
	return page, nil
}

func (s *QueryService) SessionEvents(ctx context.Context, sessionID string, limit int) ([]model.EventListItem, error) {
	events, err := s.events.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list events: %w", err))
	}
	return events, nil
}
