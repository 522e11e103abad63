package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mundocerca/backend/internal/constants"
	"github.com/mundocerca/backend/internal/database"
)

// Custom error types for the application
var (
	ErrNotFound       = errors.New("resource not found")
	ErrBadRequest     = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation error")
	ErrDuplicate      = errors.New("duplicate resource")

	// Password reset flow
	ErrRateLimited           = errors.New("rate limited")
	ErrNoActiveRequest       = errors.New("no active reset request")
	ErrInvalidCode           = errors.New("invalid verification code")
	ErrLockedOut             = errors.New("verification locked out")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
)

// AppError represents an application error with additional context
type AppError struct {
	Err        error  // The underlying error
	StatusCode int    // HTTP status code
	Message    string // User-friendly error message
	DevInfo    string // Additional information for developers
	Field      string // Field related to the error (for validation errors)
	Details    map[string]any

	// WaitSeconds is the retry hint of a cooldown rejection, zero when unknown.
	WaitSeconds int
	// AttemptsRemaining is reported with ErrInvalidCode.
	AttemptsRemaining int
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the given error and status code
func New(err error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        err,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewWithDevInfo creates a new AppError with developer information
func NewWithDevInfo(err error, statusCode int, message, devInfo string) *AppError {
	return &AppError{
		Err:        err,
		StatusCode: statusCode,
		Message:    message,
		DevInfo:    devInfo,
	}
}

// NewValidationError creates a new validation error for a specific field
func NewValidationError(field, message string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Field:      field,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		StatusCode: http.StatusBadRequest,
		Message:    message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resourceType string, identifier interface{}) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("%s with identifier '%v' not found", resourceType, identifier),
	}
}

// NewInternalServerError creates a new internal server error
func NewInternalServerError(err error) *AppError {
	devInfo := ""
	if err != nil {
		devInfo = err.Error()
	}
	return &AppError{
		Err:        ErrInternalServer,
		StatusCode: http.StatusInternalServerError,
		Message:    constants.MsgInternalServerError,
		DevInfo:    devInfo,
	}
}

// NewDuplicateError creates a new duplicate resource error
func NewDuplicateError(resourceType, field string, value interface{}) *AppError {
	return &AppError{
		Err:        ErrDuplicate,
		StatusCode: http.StatusConflict,
		Message:    fmt.Sprintf("%s with %s '%v' already exists", resourceType, field, value),
		Field:      field,
	}
}

// NewRateLimitedError creates a rejection for a reset request that came too soon or too often.
// waitSeconds is only known for cooldown rejections; pass zero for the hourly caps.
func NewRateLimitedError(waitSeconds int) *AppError {
	return &AppError{
		Err:         ErrRateLimited,
		StatusCode:  http.StatusTooManyRequests,
		Message:     constants.MsgRateLimited,
		WaitSeconds: waitSeconds,
	}
}

// NewNoActiveRequestError creates an error for an email without a live reset code
func NewNoActiveRequestError() *AppError {
	return &AppError{
		Err:        ErrNoActiveRequest,
		StatusCode: http.StatusBadRequest,
		Message:    constants.MsgNoActiveRequest,
	}
}

// NewInvalidCodeError creates an error for a wrong code that left the record usable
func NewInvalidCodeError(attemptsRemaining int) *AppError {
	return &AppError{
		Err:               ErrInvalidCode,
		StatusCode:        http.StatusBadRequest,
		Message:           constants.MsgInvalidCode,
		AttemptsRemaining: attemptsRemaining,
	}
}

// NewLockedOutError creates an error for a record burned by too many wrong codes
func NewLockedOutError() *AppError {
	return &AppError{
		Err:        ErrLockedOut,
		StatusCode: http.StatusLocked,
		Message:    constants.MsgLockedOut,
	}
}

// NewInvalidOrExpiredTokenError creates the single error returned by every failed finalization
func NewInvalidOrExpiredTokenError() *AppError {
	return &AppError{
		Err:        ErrInvalidOrExpiredToken,
		StatusCode: http.StatusBadRequest,
		Message:    constants.MsgInvalidOrExpiredToken,
	}
}

// ParseError attempts to parse various types of errors into an AppError
func ParseError(err error) *AppError {
	// If it's already an AppError, return it
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NewNotFoundError("Resource", "")
	case errors.Is(err, ErrBadRequest):
		return NewBadRequestError(err.Error())
	case errors.Is(err, ErrValidation):
		return NewValidationError("", err.Error())
	case errors.Is(err, ErrDuplicate):
		return NewDuplicateError("Resource", "", "")
	case errors.Is(err, ErrRateLimited):
		return NewRateLimitedError(0)
	case errors.Is(err, ErrNoActiveRequest):
		return NewNoActiveRequestError()
	case errors.Is(err, ErrLockedOut):
		return NewLockedOutError()
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return NewInvalidOrExpiredTokenError()
	}

	// Driver-level constraint failures
	switch {
	case database.IsUniqueViolation(err):
		return &AppError{
			Err:        ErrDuplicate,
			StatusCode: http.StatusConflict,
			Message:    "A resource with the same unique identifier already exists",
			DevInfo:    err.Error(),
		}
	case database.IsForeignKeyViolation(err):
		return &AppError{
			Err:        ErrBadRequest,
			StatusCode: http.StatusBadRequest,
			Message:    "This operation violates a foreign key constraint",
			DevInfo:    err.Error(),
		}
	}

	return NewInternalServerError(err)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode == http.StatusNotFound
	}
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if an error is a duplicate resource error
func IsDuplicateError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode == http.StatusConflict
	}
	return errors.Is(err, ErrDuplicate)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// StatusCode returns the HTTP status code for an error
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
