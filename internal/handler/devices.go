package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/claudiator/server-go/internal/errors"
	"github.com/claudiator/server-go/internal/httputil"
	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/service"
	"github.com/claudiator/server-go/internal/util"
)

// QueryReader serves the read-only device, session and event views.
type QueryReader interface {
	Devices(ctx context.Context) ([]model.Device, error)
	DeviceSessions(ctx context.Context, deviceID string, status model.SessionStatus, limit int) ([]model.Session, error)
	Sessions(ctx context.Context, params model.ListSessionsParams) (*service.SessionPage, error)
	SessionEvents(ctx context.Context, sessionID string, limit int) ([]model.EventListItem, error)
}

type DevicesHandler struct {
	query QueryReader
}

func NewDevicesHandler(query QueryReader) *DevicesHandler {
	return &DevicesHandler{query: query}
}

func (h *DevicesHandler) Register(r chi.Router, g Gates) {
	r.With(g.Read).Get("/devices", h.List)
	r.With(g.Read).Get("/devices/{id}/sessions", h.Sessions)
}

// GET /api/v1/devices
func (h *DevicesHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.query.Devices(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

// GET /api/v1/devices/{id}/sessions?status=&limit=
func (h *DevicesHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	status, err := parseStatus(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := parseLimit(r, deviceSessionLimits)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sessions, err := h.query.DeviceSessions(r.Context(), chi.URLParam(r, "id"), status, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func parseStatus(r *http.Request) (model.SessionStatus, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", nil
	}
	if !util.IsValidEnum(raw, model.SessionStatuses) {
		return "", apperrors.BadRequest("invalid status filter: " + raw)
	}
	return model.SessionStatus(raw), nil
}
