package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claudiator/server-go/internal/httputil"
	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/service"
)

type EventIngester interface {
	Ingest(ctx context.Context, p model.EventPayload) (*service.IngestResult, error)
}

type EventsHandler struct {
	events EventIngester
}

func NewEventsHandler(events EventIngester) *EventsHandler {
	return &EventsHandler{events: events}
}

func (h *EventsHandler) Register(r chi.Router, g Gates) {
	r.With(g.Write).Post("/events", h.Create)
}

// POST /api/v1/events
// Fields the hook sends beyond the known ones are dropped while decoding.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.EventPayload
	if err := decodeJSON(r, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.events.Ingest(r.Context(), payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteOK(w, http.StatusOK, map[string]any{"data_version": res.DataVersion})
}
