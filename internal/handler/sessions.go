package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claudiator/server-go/internal/httputil"
	"github.com/claudiator/server-go/internal/model"
)

type SessionsHandler struct {
	query QueryReader
}

func NewSessionsHandler(query QueryReader) *SessionsHandler {
	return &SessionsHandler{query: query}
}

func (h *SessionsHandler) Register(r chi.Router, g Gates) {
	r.With(g.Read).Get("/sessions", h.List)
	r.With(g.Read).Get("/sessions/{id}/events", h.Events)
}

// GET /api/v1/sessions?status=&limit=&offset=&exclude_ended=
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	status, err := parseStatus(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := parseLimit(r, sessionLimits)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	offset, err := parseOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	excludeEnded, err := parseBool(r, "exclude_ended")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.query.Sessions(r.Context(), model.ListSessionsParams{
		Status:       status,
		Limit:        limit,
		Offset:       offset,
		ExcludeEnded: excludeEnded,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// GET /api/v1/sessions/{id}/events?limit=
func (h *SessionsHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, eventLimits)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.query.SessionEvents(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}
