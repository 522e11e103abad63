package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mundocerca/backend/internal/constants"
	"github.com/mundocerca/backend/internal/models"
	"github.com/mundocerca/backend/internal/repository"
	"github.com/mundocerca/backend/internal/utils"
)

// AuditService records security events. Writes are best effort: a failure is
// logged and never undoes the action being audited.
type AuditService struct {
	repo  repository.AuditRepository
	clock utils.Clock
}

// NewAuditService creates a new AuditService
func NewAuditService(repo repository.AuditRepository, clock utils.Clock) *AuditService {
	return &AuditService{repo: repo, clock: clock}
}

// RecordPasswordReset stores a password reset event for the user
func (s *AuditService) RecordPasswordReset(ctx context.Context, userID int64, ip string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.AuditWriteTimeout)
	defer cancel()

	event := models.NewSecurityAuditEvent(userID, constants.AuditEventPasswordReset, ip, s.clock.Now())
	if err := s.repo.Create(ctx, event); err != nil {
		log.Error().
			Err(err).
			Int64("user_id", userID).
			Str("event", event.Event).
			Msg("Failed to write security audit event")
		return
	}

	utils.LogSecurityEvent(event.Event, map[string]interface{}{
		"user_id":    userID,
		"ip_address": ip,
	})
}
