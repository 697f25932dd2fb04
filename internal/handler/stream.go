package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/claudiator/server-go/internal/errors"
	"github.com/claudiator/server-go/internal/httputil"
	"github.com/claudiator/server-go/internal/service"
	"github.com/claudiator/server-go/internal/sse"
)

type VersionFeed interface {
	Subscribe(current service.VersionSnapshot) *sse.Client
	Unsubscribe(client *sse.Client)
	Last() service.VersionSnapshot
}

type StreamHandler struct {
	feed      VersionFeed
	versions  VersionSource
	heartbeat time.Duration
}

func NewStreamHandler(feed VersionFeed, versions VersionSource, heartbeat time.Duration) *StreamHandler {
	return &StreamHandler{feed: feed, versions: versions, heartbeat: heartbeat}
}

func (h *StreamHandler) Register(r chi.Router, g Gates) {
	r.With(g.Read).Get("/stream", h.ServeHTTP)
}

// GET /api/v1/stream
// Sends a versions event on connect and after every counter change.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Other instances' counters only reach this one through the feed.
	client := h.feed.Subscribe(sse.Latest(h.versions.Snapshot(), h.feed.Last()))
	defer h.feed.Unsubscribe(client)

	ctx := r.Context()
	log.Debug().Msg("stream connection established")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("stream connection closed by client")
			return

		case <-client.Done:
			log.Debug().Msg("stream connection closed by broker")
			return

		case snap := <-client.Events:
			if err := writeEvent(w, flusher, "versions", snap); err != nil {
				log.Debug().Err(err).Msg("failed to write stream event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				log.Debug().Msg("heartbeat failed, closing stream")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
