package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/claudiator/server-go/internal/audit"
	"github.com/claudiator/server-go/internal/httputil"
	"github.com/claudiator/server-go/internal/model"
)

type APIKeyManager interface {
	Create(ctx context.Context, req model.CreateAPIKeyRequest) (*model.CreatedAPIKey, error)
	List(ctx context.Context) ([]model.APIKey, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type AdminHandler struct {
	keys APIKeyManager
}

func NewAdminHandler(keys APIKeyManager) *AdminHandler {
	return &AdminHandler{keys: keys}
}

func (h *AdminHandler) Register(r chi.Router, g Gates) {
	r.Group(func(r chi.Router) {
		r.Use(g.Admin)
		r.Post("/api-keys", h.CreateKey)
		r.Get("/api-keys", h.ListKeys)
		r.Delete("/api-keys/{id}", h.DeleteKey)
	})
}

// POST /admin/api-keys
func (h *AdminHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.keys.Create(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventAPIKeyCreate,
		KeyID:   created.ID,
		Details: map[string]interface{}{"name": created.Name, "scopes": created.Scopes.String()},
	})
	httputil.WriteJSON(w, http.StatusCreated, created)
}

// GET /admin/api-keys
func (h *AdminHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

// DELETE /admin/api-keys/{id}
// Unknown ids succeed too, so retries are safe.
func (h *AdminHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.keys.Delete(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if deleted {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventAPIKeyDelete, KeyID: id})
	} else {
		log.Debug().Str("keyId", id).Msg("api key already absent")
	}
	httputil.WriteOK(w, http.StatusOK, nil)
}
