package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mundocerca/backend/internal/config"
	"github.com/mundocerca/backend/internal/constants"
	"github.com/mundocerca/backend/internal/repository"
	"github.com/mundocerca/backend/internal/utils"
)

// Guard rejection reasons, logged but never sent to the client
const (
	GuardReasonEmailHourlyCap = "email_hourly_cap"
	GuardReasonIPHourlyCap    = "ip_hourly_cap"
	GuardReasonCooldown       = "cooldown"
)

// GuardDecision is the outcome of a reset request admission check.
// WaitSeconds is only known for cooldown rejections.
type GuardDecision struct {
	Allowed     bool
	WaitSeconds int
	Reason      string
}

// ResetGuard admits reset requests using time-windowed reads over the durable store,
// so the limits hold across restarts and across instances.
type ResetGuard struct {
	resets repository.PasswordResetRepository
	cfg    *config.PasswordResetSettings
	clock  utils.Clock
}

// NewResetGuard creates a new ResetGuard
func NewResetGuard(resets repository.PasswordResetRepository, cfg *config.PasswordResetSettings, clock utils.Clock) *ResetGuard {
	return &ResetGuard{resets: resets, cfg: cfg, clock: clock}
}

// Check decides whether a new reset request for email from ip may proceed.
func (g *ResetGuard) Check(ctx context.Context, email, ip string) (GuardDecision, error) {
	now := g.clock.Now()
	since := now.Add(-constants.RateLimitWindow)

	emailCount, err := g.resets.CountByEmailSince(ctx, email, since)
	if err != nil {
		return GuardDecision{}, fmt.Errorf("failed to count requests for email: %w", err)
	}
	if emailCount >= g.cfg.MaxPerEmailPerHour {
		return GuardDecision{Reason: GuardReasonEmailHourlyCap}, nil
	}

	ipCount, err := g.resets.CountByIPSince(ctx, ip, since)
	if err != nil {
		return GuardDecision{}, fmt.Errorf("failed to count requests for ip: %w", err)
	}
	if ipCount >= g.cfg.MaxPerIPPerHour {
		return GuardDecision{Reason: GuardReasonIPHourlyCap}, nil
	}

	latest, err := g.resets.GetLatestByEmail(ctx, email)
	if err != nil {
		if utils.IsNotFoundError(err) {
			return GuardDecision{Allowed: true}, nil
		}
		return GuardDecision{}, fmt.Errorf("failed to get latest request: %w", err)
	}

	cooldown := g.cfg.Cooldown()
	if elapsed := now.Sub(latest.CreatedAt); elapsed < cooldown {
		return GuardDecision{
			Reason:      GuardReasonCooldown,
			WaitSeconds: waitSeconds(cooldown - elapsed),
		}, nil
	}

	return GuardDecision{Allowed: true}, nil
}

// waitSeconds rounds a remaining duration up to whole seconds, at least one
func waitSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
