package handler

import (
	"net/http"
	"strconv"

	apperrors "github.com/claudiator/server-go/internal/errors"
)

type limitBounds struct {
	Default int
	Max     int
}

var (
	deviceSessionLimits = limitBounds{Default: 50, Max: 200}
	sessionLimits       = limitBounds{Default: 50, Max: 200}
	eventLimits         = limitBounds{Default: 100, Max: 500}
	notificationLimits  = limitBounds{Default: 50, Max: 200}
)

// parseLimit reads ?limit=, applying the default when absent and clamping
// to the maximum.
func parseLimit(r *http.Request, b limitBounds) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return b.Default, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, apperrors.BadRequest("limit must be a positive integer")
	}
	if limit > b.Max {
		limit = b.Max
	}
	return limit, nil
}

func parseOffset(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("offset")
	if raw == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.BadRequest("offset must be an integer")
	}
	if offset < 0 {
		offset = 0
	}
	return offset, nil
}

func parseBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.BadRequest(name + " must be true or false")
	}
	return v, nil
}
