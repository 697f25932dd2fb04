package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claudiator/server-go/internal/httputil"
	"github.com/claudiator/server-go/internal/service"
)

type VersionSource interface {
	Snapshot() service.VersionSnapshot
}

type PingHandler struct {
	versions      VersionSource
	serverVersion string
}

func NewPingHandler(versions VersionSource, serverVersion string) *PingHandler {
	return &PingHandler{versions: versions, serverVersion: serverVersion}
}

func (h *PingHandler) Register(r chi.Router, g Gates) {
	r.With(g.Read).Get("/ping", h.Ping)
}

// GET /api/v1/ping
func (h *PingHandler) Ping(w http.ResponseWriter, r *http.Request) {
	snap := h.versions.Snapshot()
	httputil.WriteOK(w, http.StatusOK, map[string]any{
		"server_version":       h.serverVersion,
		"data_version":         snap.DataVersion,
		"notification_version": snap.NotificationVersion,
	})
}
