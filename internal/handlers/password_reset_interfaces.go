// Package handlers provides HTTP request handlers for the MundoCerca API.
package handlers

import (
	"context"

	"github.com/mundocerca/backend/internal/service"
)

// PasswordResetServiceInterface defines the methods required from the password reset service.
// Handlers depend on this interface so they can be tested without a database.
type PasswordResetServiceInterface interface {
	// RequestReset starts a reset for email.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - email: Address as typed by the client
	//   - ip: Client address used for the per-address cap
	//
	// Returns:
	//   - The generic acknowledgement, identical for known and unknown accounts
	//   - A rate limit, validation or internal error
	RequestReset(ctx context.Context, email, ip string) (*service.RequestResetResult, error)

	// VerifyOTP exchanges a correct code for a reset token.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - email: Address the code was sent to
	//   - otp: The code as typed by the client
	//
	// Returns:
	//   - The plaintext reset token and its lifetime in seconds
	//   - ErrNoActiveRequest, ErrInvalidCode or ErrLockedOut when the code is not accepted
	VerifyOTP(ctx context.Context, email, otp string) (*service.VerifyOTPResult, error)

	// ResetPassword spends a reset token on a new password.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - email: Address of the account
	//   - token: Reset token returned by VerifyOTP
	//   - newPassword: The new password in plaintext
	//   - ip: Client address recorded in the audit trail
	//
	// Returns:
	//   - A confirmation message
	//   - ErrInvalidOrExpiredToken for every token failure
	ResetPassword(ctx context.Context, email, token, newPassword, ip string) (*service.ResetPasswordResult, error)
}
