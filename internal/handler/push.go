package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claudiator/server-go/internal/httputil"
	"github.com/claudiator/server-go/internal/model"
)

type PushRegistrar interface {
	Register(ctx context.Context, req model.RegisterPushRequest) error
}

type PushHandler struct {
	registrar PushRegistrar
}

func NewPushHandler(registrar PushRegistrar) *PushHandler {
	return &PushHandler{registrar: registrar}
}

func (h *PushHandler) Register(r chi.Router, g Gates) {
	r.With(g.Write).Post("/push/register", h.RegisterToken)
}

// POST /api/v1/push/register
func (h *PushHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterPushRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.registrar.Register(r.Context(), req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteOK(w, http.StatusOK, nil)
}
