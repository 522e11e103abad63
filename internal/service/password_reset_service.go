package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mundocerca/backend/internal/auth"
	"github.com/mundocerca/backend/internal/config"
	"github.com/mundocerca/backend/internal/constants"
	"github.com/mundocerca/backend/internal/models"
	"github.com/mundocerca/backend/internal/repository"
	"github.com/mundocerca/backend/internal/utils"
)

// ResetCodeMailer hands a code to the outbound email channel without waiting for delivery
type ResetCodeMailer interface {
	DispatchResetCode(toEmail, code string, ttl time.Duration)
}

// RequestResetResult is the generic acknowledgement of a reset request
type RequestResetResult struct {
	Message         string
	CooldownSeconds int
}

// VerifyOTPResult carries the plaintext reset token
type VerifyOTPResult struct {
	ResetToken string
	ExpiresIn  int
}

// ResetPasswordResult confirms a password change
type ResetPasswordResult struct {
	Message string
}

// PasswordResetService runs the three steps of the reset flow: request a code,
// exchange the code for a reset token, and spend the token on a new password.
type PasswordResetService struct {
	resets repository.PasswordResetRepository
	users  repository.UserRepository
	guard  *ResetGuard
	hasher auth.SecretHasher
	mailer ResetCodeMailer
	audit  *AuditService
	cfg    *config.PasswordResetSettings
	clock  utils.Clock
	random auth.RandomSource

	// sleep pads responses; replaced in tests
	sleep func(ctx context.Context, d time.Duration)
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(
	resets repository.PasswordResetRepository,
	users repository.UserRepository,
	hasher auth.SecretHasher,
	mailer ResetCodeMailer,
	audit *AuditService,
	cfg *config.PasswordResetSettings,
	clock utils.Clock,
) *PasswordResetService {
	return &PasswordResetService{
		resets: resets,
		users:  users,
		guard:  NewResetGuard(resets, cfg, clock),
		hasher: hasher,
		mailer: mailer,
		audit:  audit,
		cfg:    cfg,
		clock:  clock,
		random: rand.Reader,
		sleep:  sleepContext,
	}
}

// RequestReset starts a reset for email. The acknowledgement is the same whether
// or not the account exists, and both outcomes take at least the configured
// minimum response time.
func (s *PasswordResetService) RequestReset(ctx context.Context, email, ip string) (*RequestResetResult, error) {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}

	start := time.Now()
	defer s.padResponse(ctx, start)

	decision, err := s.guard.Check(ctx, email, ip)
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}
	if !decision.Allowed {
		utils.LogAuth(constants.LogEventResetRateLimited, 0, email, false, decision.Reason)
		return nil, utils.NewRateLimitedError(decision.WaitSeconds)
	}

	ack := &RequestResetResult{
		Message:         constants.MsgResetRequested,
		CooldownSeconds: s.cfg.CooldownSeconds,
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if utils.IsNotFoundError(err) {
			utils.LogAuth(constants.LogEventResetUnknownEmail, 0, email, false, "no account")
			return ack, nil
		}
		return nil, utils.NewInternalServerError(err)
	}

	otp, err := auth.GenerateNumericOTP(s.random, s.cfg.OTPLength)
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}

	otpHash, err := s.hasher.Hash(otp)
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}

	record := models.NewPasswordReset(user.ID, email, otpHash, ip, s.clock.Now(), s.cfg.OTPTTL())
	if err := s.resets.CreateAndInvalidatePrevious(ctx, record); err != nil {
		return nil, utils.NewInternalServerError(err)
	}

	s.mailer.DispatchResetCode(email, otp, s.cfg.OTPTTL())

	utils.LogAuth(constants.LogEventResetRequested, user.ID, email, true, "")
	return ack, nil
}

// VerifyOTP exchanges a correct code for a short-lived reset token.
// Each wrong code counts against the record; the last allowed miss burns it.
func (s *PasswordResetService) VerifyOTP(ctx context.Context, email, otp string) (*VerifyOTPResult, error) {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}
	if otp == "" {
		return nil, utils.NewValidationError("otp", "This field is required")
	}

	now := s.clock.Now()

	record, err := s.resets.GetActiveOTPByEmail(ctx, email, now)
	if err != nil {
		if utils.IsNotFoundError(err) {
			return nil, utils.NewNoActiveRequestError()
		}
		return nil, utils.NewInternalServerError(err)
	}

	if record.Attempts >= s.cfg.MaxAttempts {
		if err := s.resets.MarkUsed(ctx, record.ID, now); err != nil {
			return nil, utils.NewInternalServerError(err)
		}
		utils.LogAuth(constants.LogEventOTPLockedOut, record.UserID, email, false, "attempts exhausted")
		return nil, utils.NewLockedOutError()
	}

	match, err := s.hasher.Verify(otp, record.OTPHash)
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}

	if !match {
		attempts, used, err := s.resets.RecordFailedAttempt(ctx, record.ID, s.cfg.MaxAttempts, now)
		if err != nil {
			if utils.IsNotFoundError(err) {
				return nil, utils.NewNoActiveRequestError()
			}
			return nil, utils.NewInternalServerError(err)
		}

		if used {
			utils.LogAuth(constants.LogEventOTPLockedOut, record.UserID, email, false, "attempts exhausted")
			return nil, utils.NewLockedOutError()
		}

		record.Attempts = attempts
		utils.LogAuth(constants.LogEventOTPMismatch, record.UserID, email, false, "wrong code")
		return nil, utils.NewInvalidCodeError(record.AttemptsRemaining(s.cfg.MaxAttempts))
	}

	token, err := auth.GenerateResetToken(s.random)
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}

	tokenHash, err := s.hasher.Hash(token)
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}

	issued, err := s.resets.IssueResetToken(ctx, record.ID, tokenHash, now.Add(s.cfg.TokenTTL()), now)
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}
	if !issued {
		// a concurrent request verified or burned the record first
		return nil, utils.NewNoActiveRequestError()
	}

	utils.LogAuth(constants.LogEventOTPVerified, record.UserID, email, true, "")

	return &VerifyOTPResult{
		ResetToken: token,
		ExpiresIn:  int(s.cfg.TokenTTL().Seconds()),
	}, nil
}

// ResetPassword spends a reset token on a new password. The token is claimed
// with a conditional update before the password changes, so it works once.
func (s *PasswordResetService) ResetPassword(ctx context.Context, email, token, newPassword, ip string) (*ResetPasswordResult, error) {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(newPassword); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, utils.NewInvalidOrExpiredTokenError()
	}

	now := s.clock.Now()

	record, err := s.resets.GetLiveTokenByEmail(ctx, email, now)
	if err != nil {
		if utils.IsNotFoundError(err) {
			utils.LogAuth(constants.LogEventTokenRejected, 0, email, false, "no live token")
			return nil, utils.NewInvalidOrExpiredTokenError()
		}
		return nil, utils.NewInternalServerError(err)
	}

	match, err := s.hasher.Verify(token, *record.ResetTokenHash)
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}
	if !match {
		utils.LogAuth(constants.LogEventTokenRejected, record.UserID, email, false, "token mismatch")
		return nil, utils.NewInvalidOrExpiredTokenError()
	}

	// hash before claiming so a hasher failure leaves the token usable
	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, auth.ErrSecretTooLong) {
			return nil, utils.NewValidationError("newPassword", "Password is too long")
		}
		return nil, utils.NewInternalServerError(err)
	}

	claimed, err := s.resets.ConsumeToken(ctx, record.ID, now)
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}
	if !claimed {
		utils.LogAuth(constants.LogEventTokenRejected, record.UserID, email, false, "token already used")
		return nil, utils.NewInvalidOrExpiredTokenError()
	}

	if err := s.users.UpdatePasswordHash(ctx, record.UserID, passwordHash, now); err != nil {
		return nil, utils.NewInternalServerError(err)
	}

	if _, err := s.resets.InvalidateAllForUser(ctx, record.UserID, now); err != nil {
		log.Error().Err(err).Int64("user_id", record.UserID).Msg("Failed to invalidate outstanding password resets")
	}

	if s.audit != nil {
		s.audit.RecordPasswordReset(ctx, record.UserID, ip)
	}

	utils.LogAuth(constants.LogEventPasswordChanged, record.UserID, email, true, "")

	return &ResetPasswordResult{Message: constants.MsgPasswordReset}, nil
}

// CleanupExpired deletes records that can no longer be verified or spent and
// that fell out of the hourly rate-limit window.
func (s *PasswordResetService) CleanupExpired(ctx context.Context) (int64, error) {
	retention := s.cfg.Retention
	if retention < constants.RateLimitWindow {
		retention = constants.RateLimitWindow
	}

	removed, err := s.resets.DeleteExpired(ctx, s.clock.Now().Add(-retention))
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		log.Info().
			Str("event", constants.LogEventResetRecordsReaped).
			Int64("removed", removed).
			Msg("Deleted expired password reset records")
	}
	return removed, nil
}

// padResponse sleeps until the minimum response time plus jitter has passed since start
func (s *PasswordResetService) padResponse(ctx context.Context, start time.Time) {
	target := s.cfg.MinResponseTime
	if s.cfg.ResponseJitter > 0 {
		if n, err := rand.Int(s.random, big.NewInt(int64(s.cfg.ResponseJitter))); err == nil {
			target += time.Duration(n.Int64())
		}
	}

	if remaining := target - time.Since(start); remaining > 0 {
		s.sleep(ctx, remaining)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
