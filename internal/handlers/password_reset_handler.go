package handlers

import (
	"net/http"

	"github.com/mundocerca/backend/internal/models"
	"github.com/mundocerca/backend/internal/utils"
)

// PasswordResetHandler serves the three steps of the password reset flow.
type PasswordResetHandler struct {
	resetService PasswordResetServiceInterface
}

// NewPasswordResetHandler creates a new PasswordResetHandler with its dependencies.
func NewPasswordResetHandler(resetService PasswordResetServiceInterface) *PasswordResetHandler {
	return &PasswordResetHandler{resetService: resetService}
}

// ForgotPassword handles the request to start a password reset.
//
// HTTP Method:
//   - POST
//
// URL Path:
//   - /api/auth/forgot-password
//
// Responses:
//   - 200 OK: generic acknowledgement, whether or not the account exists
//   - 400 Bad Request: malformed body or email
//   - 429 Too Many Requests: cooldown or hourly cap, with waitSeconds when known
//   - 500 Internal Server Error: storage failure
func (h *PasswordResetHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.HandleError(w, err)
		return
	}

	result, err := h.resetService.RequestReset(r.Context(), req.Email, utils.ClientIP(r))
	if err != nil {
		utils.HandleError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, models.ForgotPasswordResponse{
		OK:              true,
		Message:         result.Message,
		CooldownSeconds: result.CooldownSeconds,
	})
}

// VerifyOTP handles the exchange of a verification code for a reset token.
//
// HTTP Method:
//   - POST
//
// URL Path:
//   - /api/auth/verify-otp
//
// Responses:
//   - 200 OK: reset token and its lifetime in seconds
//   - 400 Bad Request: no active request, or wrong code with attemptsRemaining
//   - 423 Locked: attempts exhausted
func (h *PasswordResetHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.HandleError(w, err)
		return
	}

	result, err := h.resetService.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		utils.HandleError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, models.VerifyOTPResponse{
		OK:         true,
		ResetToken: result.ResetToken,
		ExpiresIn:  result.ExpiresIn,
	})
}

// ResetPassword handles the request to set a new password with a reset token.
//
// HTTP Method:
//   - POST
//
// URL Path:
//   - /api/auth/reset-password
//
// Responses:
//   - 200 OK: password changed
//   - 400 Bad Request: invalid or expired token, or a password outside the length bounds
func (h *PasswordResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.HandleError(w, err)
		return
	}

	result, err := h.resetService.ResetPassword(r.Context(), req.Email, req.ResetToken, req.NewPassword, utils.ClientIP(r))
	if err != nil {
		utils.HandleError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, models.ResetPasswordResponse{
		OK:      true,
		Message: result.Message,
	})
}
