package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode is the machine-readable error kind sent to clients
type ErrorCode string

const (
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	ErrCodeForbidden    ErrorCode = "forbidden"
	ErrCodeRateLimited  ErrorCode = "rate_limited"
	ErrCodeBadRequest   ErrorCode = "bad_request"
	ErrCodeInternal     ErrorCode = "internal_error"
)

// AppError is a structured error that can be returned to clients.
// RetryAfter, when set, is sent as a Retry-After header.
type AppError struct {
	Code       ErrorCode
	Message    string
	RetryAfter time.Duration
	cause      error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

func (e *AppError) WithRetryAfter(d time.Duration) *AppError {
	e.RetryAfter = d
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Credentials

func InvalidAPIKey() *AppError {
	return New(ErrCodeUnauthorized, "Invalid or missing API key")
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func MissingScope(scope string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("API key lacks the %s scope", scope))
}

// Throttling

func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message)
}

func IPLockedOut(lockout time.Duration) *AppError {
	return RateLimited("Too many failed authentication attempts").WithRetryAfter(lockout)
}

func KeyQuotaExceeded(window time.Duration) *AppError {
	return RateLimited("API key rate limit exceeded").WithRetryAfter(window)
}

// Validation

func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message)
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeBadRequest, fmt.Sprintf("%s is required", field))
}

func BodyTooLarge() *AppError {
	return New(ErrCodeBadRequest, "Request body too large")
}

// Server-side failures; the cause is logged, never sent.

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Internal("Internal server error").WithCause(cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
