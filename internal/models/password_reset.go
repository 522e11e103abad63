// Package models provides the persisted entities and request payloads of the
// MundoCerca password reset flow.
//
// A PasswordReset row moves through three states: an active OTP, a verified OTP
// carrying a live reset token, and used. The used flag never goes back to false.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mundocerca/backend/internal/constants"
)

// PasswordReset is one reset attempt for one user.
// OTPHash and ResetTokenHash are sibling columns; issuing a token never overwrites the OTP hash.
type PasswordReset struct {
	// ID is an opaque unique identifier
	ID string `json:"id" db:"id"`

	// UserID references the owning user and never changes
	UserID int64 `json:"user_id" db:"user_id"`

	// Email is the normalized address the code was sent to
	Email string `json:"-" db:"email"`

	// OTPHash is the adaptive hash of the numeric code
	OTPHash string `json:"-" db:"otp_hash"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// ExpiresAt ends the OTP validity window
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`

	// Used is terminal once true
	Used bool `json:"used" db:"used"`

	// Attempts counts failed code comparisons
	Attempts int `json:"attempts" db:"attempts"`

	// IPAddress is the client address of the creating request
	IPAddress string `json:"-" db:"ip_address"`

	ResetTokenHash      *string    `json:"-" db:"reset_token_hash"`
	ResetTokenExpiresAt *time.Time `json:"-" db:"reset_token_expires_at"`

	// OTPVerifiedAt is set together with the reset token and marks the code consumed
	OTPVerifiedAt *time.Time `json:"-" db:"otp_verified_at"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewPasswordReset builds an active record for the given user.
//
// Parameters:
//   - userID: The owning user
//   - email: The normalized email address
//   - otpHash: The hashed verification code
//   - ip: The requesting client address
//   - now: The creation instant
//   - ttl: How long the code stays valid
func NewPasswordReset(userID int64, email, otpHash, ip string, now time.Time, ttl time.Duration) *PasswordReset {
	now = now.UTC()
	return &PasswordReset{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		OTPHash:   otpHash,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		IPAddress: ip,
		UpdatedAt: now,
	}
}

// TableName returns the database table name for the PasswordReset model.
func (p *PasswordReset) TableName() string {
	return constants.TablePasswordResets
}

// OTPActive reports whether the code can still be verified at now.
func (p *PasswordReset) OTPActive(now time.Time) bool {
	return !p.Used && p.OTPVerifiedAt == nil && now.Before(p.ExpiresAt)
}

// TokenLive reports whether the record holds a reset token that has not lapsed at now.
func (p *PasswordReset) TokenLive(now time.Time) bool {
	return !p.Used &&
		p.ResetTokenHash != nil &&
		p.ResetTokenExpiresAt != nil &&
		now.Before(*p.ResetTokenExpiresAt)
}

// AttemptsRemaining returns how many wrong codes are still tolerated, never negative.
func (p *PasswordReset) AttemptsRemaining(maxAttempts int) int {
	if remaining := maxAttempts - p.Attempts; remaining > 0 {
		return remaining
	}
	return 0
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password.
// Email shape is checked by the service after trimming and lowercasing.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

// VerifyOTPRequest is the body of POST /api/auth/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,max=254"`
	OTP   string `json:"otp" validate:"required,otp"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password.
// NewPassword length is checked by the service so the rule lives in one place.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,max=254"`
	ResetToken  string `json:"resetToken" validate:"required,hexadecimal,max=128"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// ForgotPasswordResponse acknowledges a reset request without revealing account existence.
type ForgotPasswordResponse struct {
	OK              bool   `json:"ok"`
	Message         string `json:"message"`
	CooldownSeconds int    `json:"cooldownSeconds"`
}

// VerifyOTPResponse carries the plaintext reset token, the only time it leaves the server.
type VerifyOTPResponse struct {
	OK         bool   `json:"ok"`
	ResetToken string `json:"resetToken"`
	ExpiresIn  int    `json:"expiresIn"`
}

// ResetPasswordResponse confirms the password change.
type ResetPasswordResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}
