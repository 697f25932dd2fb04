package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/claudiator/server-go/internal/errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unauthorized", apperrors.InvalidAPIKey(), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperrors.Forbidden("Admin endpoints are loopback only"), http.StatusForbidden, "forbidden"},
		{"rate limited", apperrors.RateLimited("Rate limit exceeded"), http.StatusTooManyRequests, "rate_limited"},
		{"bad request", apperrors.MissingRequired("device_id"), http.StatusUnprocessableEntity, "bad_request"},
		{"internal", apperrors.Database(errors.New("disk I/O error")), http.StatusInternalServerError, "internal_error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}

	t.Run("retry hint becomes a header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, apperrors.IPLockedOut(5*time.Minute))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "300", rec.Header().Get("Retry-After"))
	})

	t.Run("no header without a hint", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, apperrors.RateLimited("slow down"))
		assert.Empty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("internal causes are not leaked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, apperrors.Database(errors.New("secret table name")))
		assert.NotContains(t, rec.Body.String(), "secret table name")
	})
}

func TestWriteOK(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteOK(rec, http.StatusCreated, map[string]any{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "abc", body["id"])
}
