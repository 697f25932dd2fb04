package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/claudiator/server-go/internal/errors"
	"github.com/claudiator/server-go/internal/httputil"
	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/util"
)

type NotificationStore interface {
	List(ctx context.Context, after string, limit int) ([]model.Notification, error)
	Acknowledge(ctx context.Context, ids []string) (int64, error)
}

type NotificationsHandler struct {
	notifications NotificationStore
}

func NewNotificationsHandler(notifications NotificationStore) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

func (h *NotificationsHandler) Register(r chi.Router, g Gates) {
	r.With(g.Read).Get("/notifications", h.List)
	r.With(g.Write).Post("/notifications/ack", h.Ack)
}

// GET /api/v1/notifications?after=&limit=
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after")
	if after != "" {
		normalized, err := util.NormalizeTimestamp(after)
		if err != nil {
			httputil.WriteError(w, apperrors.BadRequest("after must be a valid RFC 3339 timestamp"))
			return
		}
		after = normalized
	}
	limit, err := parseLimit(r, notificationLimits)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	notifications, err := h.notifications.List(r.Context(), after, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

// POST /api/v1/notifications/ack
func (h *NotificationsHandler) Ack(w http.ResponseWriter, r *http.Request) {
	var req model.AckNotificationsRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	n, err := h.notifications.Acknowledge(r.Context(), req.IDs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteOK(w, http.StatusOK, map[string]any{"acknowledged": n})
}
