// Package constants provides shared constant values used throughout the application.
//
// The errorcodes.go file defines the machine-readable error codes and user-facing
// messages of the API. Messages on the account-existence sensitive paths are
// deliberately identical so that clients cannot tell known accounts from unknown ones.
package constants

// Response Codes define application-specific error codes sent next to the HTTP status.
const (
	CodeBadRequest            = "bad_request"
	CodeNotFound              = "not_found"
	CodeValidationError       = "validation_error"
	CodeDuplicateResource     = "duplicate_resource"
	CodeRateLimited           = "rate_limited"
	CodeTooManyRequests       = "too_many_requests"
	CodeNoActiveRequest       = "no_active_request"
	CodeInvalidCode           = "invalid_code"
	CodeLockedOut             = "locked_out"
	CodeInvalidOrExpiredToken = "invalid_or_expired_token"
	CodeInternalError         = "internal_error"
	CodeServiceUnavailable    = "service_unavailable"
	CodeMethodNotAllowed      = "method_not_allowed"
)

// User-facing Messages
const (
	// MsgResetRequested is returned for every accepted forgot-password request.
	MsgResetRequested = "If an account with that email exists, a verification code has been sent."

	// MsgRateLimited is returned for both cooldown and hourly cap rejections.
	MsgRateLimited = "Too many reset requests. Please try again later."

	// MsgNoActiveRequest is returned when no live reset request exists for the email.
	MsgNoActiveRequest = "No valid reset request found. Please request a new code."

	// MsgInvalidCode is returned for a wrong verification code.
	MsgInvalidCode = "The verification code is incorrect."

	// MsgLockedOut is returned once the verification attempts are exhausted.
	MsgLockedOut = "Too many incorrect attempts. Please request a new code."

	// MsgInvalidOrExpiredToken is returned for any finalization mismatch or lapse.
	MsgInvalidOrExpiredToken = "Invalid or expired password reset token."

	// MsgPasswordReset is returned when the password was changed.
	MsgPasswordReset = "Password has been reset successfully."

	// MsgCodeVerified accompanies a freshly issued reset token.
	MsgCodeVerified = "Verification code accepted."

	MsgInvalidEmail        = "Must be a valid email address"
	MsgPasswordTooShort    = "Password must be at least %d characters long"
	MsgPasswordTooLong     = "Password must be at most %d characters long"
	MsgInternalServerError = "An internal server error occurred"
	MsgServiceUnhealthy    = "Service is not healthy"
	MsgTooManyRequests     = "Rate limit exceeded. Please try again later."
	MsgRequestBodyTooLarge = "Request body too large"
	MsgEmptyRequestBody    = "Request body must not be empty"
	MsgMalformedJSON       = "Request body contains badly-formed JSON"
	MsgUnexpectedPanic     = "An unexpected error occurred while processing your request"
	MsgMethodNotAllowed    = "Method not allowed"
	MsgResourceNotFound    = "The requested resource could not be found"
)

// Log Values
const (
	// LogRedactedValue replaces secrets in log output.
	LogRedactedValue = "[REDACTED]"

	// LogCategoryAuth tags authentication and reset-flow log events.
	LogCategoryAuth = "auth"
)

// Security Audit Events
const (
	AuditEventPasswordReset = "password_reset"
)

// Password Reset Log Events
const (
	LogEventResetRequested     = "password_reset_requested"
	LogEventResetUnknownEmail  = "password_reset_unknown_email"
	LogEventResetRateLimited   = "password_reset_rate_limited"
	LogEventOTPVerified        = "password_reset_otp_verified"
	LogEventOTPMismatch        = "password_reset_otp_mismatch"
	LogEventOTPLockedOut       = "password_reset_locked_out"
	LogEventPasswordChanged    = "password_reset_completed"
	LogEventTokenRejected      = "password_reset_token_rejected"
	LogEventResetEmailFailed   = "password_reset_email_failed"
	LogEventResetEmailSent     = "password_reset_email_sent"
	LogEventResetRecordsReaped = "password_reset_records_reaped"
)
