package models

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error codes returned in API payloads
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Common errors
var (
	ErrNotFound              = errors.New("resource not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnauthorized          = errors.New("unauthorized access")
	ErrUnsupportedPlatform   = errors.New("unsupported platform")
	ErrNoPlatformsConfigured = errors.New("no platform usernames configured")
	ErrUserInactive          = errors.New("user account is deactivated")
	ErrStoreUnavailable      = errors.New("statistics store unavailable")
)

// AppError carries an API error code and HTTP status alongside the cause
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// ToHTTPError converts to the API response envelope
func (e *AppError) ToHTTPError() *APIResponse {
	return &APIResponse{
		Success:   false,
		Error:     e.Message,
		Message:   e.Message,
		Timestamp: time.Now(),
	}
}

// NewHTTPError builds an AppError for the REST layer
func NewHTTPError(code, message string, statusCode int, err error) *AppError {
	appErr := &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
	if err != nil {
		appErr.Details = map[string]interface{}{"original_error": err.Error()}
	}
	return appErr
}

// AsAppError maps any error onto an AppError, classifying known sentinels
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnsupportedPlatform),
		errors.Is(err, ErrNoPlatformsConfigured):
		return NewHTTPError(ErrCodeValidation, err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(ErrCodeUnauthorized, "unauthorized", http.StatusUnauthorized, err)
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNotFound):
		return NewHTTPError(ErrCodeNotFound, err.Error(), http.StatusNotFound, err)
	case errors.Is(err, ErrUserInactive):
		return NewHTTPError(ErrCodeUnauthorized, err.Error(), http.StatusForbidden, err)
	case errors.Is(err, ErrStoreUnavailable):
		return NewHTTPError(ErrCodeServiceUnavailable, "statistics store unavailable", http.StatusServiceUnavailable, err)
	default:
		return NewHTTPError(ErrCodeInternal, "internal server error", http.StatusInternalServerError, err)
	}
}
