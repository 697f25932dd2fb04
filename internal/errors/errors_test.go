package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeBadRequest, "device_id is required")
		assert.Equal(t, "bad_request: device_id is required", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("database is locked")
		err := Database(cause)
		assert.Contains(t, err.Error(), "internal_error")
		assert.Contains(t, err.Error(), "database is locked")
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("throttling errors carry a retry hint", func(t *testing.T) {
		assert.Equal(t, 5*time.Minute, IPLockedOut(5*time.Minute).RetryAfter)
		assert.Equal(t, time.Minute, KeyQuotaExceeded(time.Minute).RetryAfter)
		assert.Zero(t, RateLimited("slow down").RetryAfter)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"InvalidAPIKey", InvalidAPIKey, ErrCodeUnauthorized},
		{"Forbidden", func() *AppError { return Forbidden("test") }, ErrCodeForbidden},
		{"MissingScope", func() *AppError { return MissingScope("write") }, ErrCodeForbidden},
		{"RateLimited", func() *AppError { return RateLimited("test") }, ErrCodeRateLimited},
		{"IPLockedOut", func() *AppError { return IPLockedOut(time.Minute) }, ErrCodeRateLimited},
		{"KeyQuotaExceeded", func() *AppError { return KeyQuotaExceeded(time.Minute) }, ErrCodeRateLimited},
		{"BadRequest", func() *AppError { return BadRequest("test") }, ErrCodeBadRequest},
		{"MissingRequired", func() *AppError { return MissingRequired("session_id") }, ErrCodeBadRequest},
		{"BodyTooLarge", BodyTooLarge, ErrCodeBadRequest},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
		{"Database", func() *AppError { return Database(errors.New("x")) }, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedCode, tt.constructor().Code)
		})
	}

	t.Run("MissingRequired names the field", func(t *testing.T) {
		assert.Equal(t, "hook_event_name is required", MissingRequired("hook_event_name").Message)
	})

	t.Run("MissingScope names the scope", func(t *testing.T) {
		assert.Equal(t, "API key lacks the write scope", MissingScope("write").Message)
	})
}

func TestHelpers(t *testing.T) {
	t.Run("AsAppError unwraps wrapped errors", func(t *testing.T) {
		wrapped := fmt.Errorf("ingest: %w", Forbidden("scope"))
		appErr, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodeForbidden, appErr.Code)
		assert.True(t, IsAppError(wrapped))
	})

	t.Run("GetCode defaults to internal", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
		assert.Equal(t, ErrCodeRateLimited, GetCode(RateLimited("slow down")))
	})
}
