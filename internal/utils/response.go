// Package utils provides utility functions and helpers for the application.
// This file implements the JSON response writers shared by every endpoint.
//
// Every body is a flat object carrying an "ok" flag. Successful bodies are the
// endpoint's own response struct. Error bodies always carry "error" and "code",
// plus the optional retry hints of the password reset flow.
package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/mundocerca/backend/internal/constants"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK                bool              `json:"ok"`
	Error             string            `json:"error"`
	Code              string            `json:"code"`
	WaitSeconds       int               `json:"waitSeconds,omitempty"`
	AttemptsRemaining int               `json:"attemptsRemaining,omitempty"`
	Details           map[string]string `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code and data.
// data is expected to carry its own "ok" field.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	SendJSON(w, statusCode, data)
}

// Error sends an error response with the given status code and error information.
func Error(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	SendJSON(w, statusCode, ErrorResponse{
		OK:      false,
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// ErrorFromAppError sends an error response based on an AppError.
// Internal causes are logged here and never reach the client.
func ErrorFromAppError(w http.ResponseWriter, err *AppError) {
	body := ErrorResponse{
		OK:                false,
		Error:             err.Message,
		Code:              errorCode(err.Err),
		WaitSeconds:       err.WaitSeconds,
		AttemptsRemaining: err.AttemptsRemaining,
	}

	if err.Field != "" {
		body.Details = map[string]string{err.Field: err.Message}
	} else if len(err.Details) > 0 {
		body.Details = make(map[string]string, len(err.Details))
		for k, v := range err.Details {
			if s, ok := v.(string); ok {
				body.Details[k] = s
			}
		}
	}

	if err.StatusCode >= http.StatusInternalServerError {
		log.Error().Str("dev_info", err.DevInfo).Msg("Internal server error")
	}

	if err.StatusCode == http.StatusTooManyRequests {
		retryAfter := constants.DefaultRetryAfterSeconds
		if err.WaitSeconds > 0 {
			retryAfter = strconv.Itoa(err.WaitSeconds)
		}
		w.Header().Set(constants.HeaderRetryAfter, retryAfter)
	}

	SendJSON(w, err.StatusCode, body)
}

// HandleError renders any error, converting it to an AppError first
func HandleError(w http.ResponseWriter, err error) {
	ErrorFromAppError(w, ParseError(err))
}

// errorCode maps a sentinel to its machine-readable code
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return constants.CodeValidationError
	case errors.Is(err, ErrRateLimited):
		return constants.CodeRateLimited
	case errors.Is(err, ErrNoActiveRequest):
		return constants.CodeNoActiveRequest
	case errors.Is(err, ErrInvalidCode):
		return constants.CodeInvalidCode
	case errors.Is(err, ErrLockedOut):
		return constants.CodeLockedOut
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return constants.CodeInvalidOrExpiredToken
	case errors.Is(err, ErrNotFound):
		return constants.CodeNotFound
	case errors.Is(err, ErrBadRequest):
		return constants.CodeBadRequest
	case errors.Is(err, ErrDuplicate):
		return constants.CodeDuplicateResource
	default:
		return constants.CodeInternalError
	}
}

// SendJSON is a helper function to send JSON data with proper headers.
func SendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		if _, err := w.Write([]byte(`{"ok":false,"error":"Failed to generate response","code":"internal_error"}`)); err != nil {
			log.Error().Err(err).Msg("Failed to write error response")
		}
		return
	}

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.Header().Set(constants.HeaderCacheControl, constants.CacheControlNoStore)
	w.WriteHeader(statusCode)

	if _, err := w.Write(jsonData); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// BadRequest sends a 400 Bad Request response with the given message.
func BadRequest(w http.ResponseWriter, message string, details map[string]string) {
	Error(w, http.StatusBadRequest, constants.CodeBadRequest, message, details)
}

// NotFound sends a 404 Not Found response with the given message.
func NotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = constants.MsgResourceNotFound
	}
	Error(w, http.StatusNotFound, constants.CodeNotFound, message, nil)
}

// MethodNotAllowed sends a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, http.StatusMethodNotAllowed, constants.CodeMethodNotAllowed, constants.MsgMethodNotAllowed, nil)
}

// TooManyRequests sends a 429 response with a Retry-After hint in seconds.
func TooManyRequests(w http.ResponseWriter, retryAfterSeconds int) {
	w.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds))
	Error(w, http.StatusTooManyRequests, constants.CodeTooManyRequests, constants.MsgTooManyRequests, nil)
}

// InternalServerError sends a 500 Internal Server Error response.
// The error is logged but not exposed to the client.
func InternalServerError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("Internal server error")
	Error(w, http.StatusInternalServerError, constants.CodeInternalError, constants.MsgInternalServerError, nil)
}

// ServiceUnavailable sends a 503 response used by the health check.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	Error(w, http.StatusServiceUnavailable, constants.CodeServiceUnavailable, message, nil)
}
