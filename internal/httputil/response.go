package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	apperrors "github.com/claudiator/server-go/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteOK writes {"status":"ok"} merged with fields.
func WriteOK(w http.ResponseWriter, status int, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["status"] = "ok"
	WriteJSON(w, status, body)
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   apperrors.ErrorCode `json:"error"`
	Message string              `json:"message"`
}

// WriteError writes an AppError as an HTTP response with appropriate status code.
// Errors that are not AppErrors are logged and rendered as internal_error.
// A RetryAfter hint becomes a Retry-After header in whole seconds.
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		log.Error().Err(err).Msg("unhandled error")
		appErr = apperrors.Internal("Internal server error")
	} else if appErr.Code == apperrors.ErrCodeInternal && appErr.Unwrap() != nil {
		log.Error().Err(appErr.Unwrap()).Msg(appErr.Message)
	}

	if appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(appErr.RetryAfter.Seconds())))
	}

	WriteJSON(w, StatusFromCode(appErr.Code), ErrorResponse{
		Error:   appErr.Code,
		Message: appErr.Message,
	})
}

// StatusFromCode maps ErrorCode to HTTP status code
func StatusFromCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeBadRequest:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
