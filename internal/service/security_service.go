package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mundocerca/backend/internal/config"
	"github.com/mundocerca/backend/internal/constants"
	"github.com/mundocerca/backend/internal/utils/ratelimit"
)

// SecurityService owns the in-memory edge throttle. It only absorbs bursts;
// the durable ResetGuard still decides whether a reset request may proceed.
type SecurityService struct {
	limiterStore    *ratelimit.Store
	cleanupInterval time.Duration
}

// NewSecurityService creates a throttle with a generous default bucket and the
// configured bucket for the password reset endpoints.
//
// Parameters:
//   - cfg: Throttle settings; zero values fall back to the defaults
//
// Returns:
//   - A configured SecurityService
func NewSecurityService(cfg *config.ThrottleSettings) *SecurityService {
	limiterStore := ratelimit.NewStore(ratelimit.Rate{
		RequestsPerSecond: 4 * constants.DefaultThrottleRequestsPerSecond,
		Burst:             4 * constants.DefaultThrottleBurst,
	}, constants.ThrottleIdleTTL, constants.MaxTrackedClients)

	resetRate := ratelimit.Rate{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}
	if resetRate.RequestsPerSecond <= 0 {
		resetRate.RequestsPerSecond = constants.DefaultThrottleRequestsPerSecond
	}
	if resetRate.Burst <= 0 {
		resetRate.Burst = constants.DefaultThrottleBurst
	}
	limiterStore.SetRate(constants.ThrottleCategoryPasswordReset, resetRate)

	return &SecurityService{
		limiterStore:    limiterStore,
		cleanupInterval: constants.ThrottleCleanupInterval,
	}
}

// Allow reports whether a client may make another request in category and,
// when it may not, how long it should wait.
func (s *SecurityService) Allow(clientID, category string) (bool, time.Duration) {
	allowed, wait := s.limiterStore.Allow(clientID, category)
	if !allowed {
		log.Debug().
			Str("category", category).
			Dur("retry_after", wait).
			Msg("Client throttled")
	}
	return allowed, wait
}

// Run evicts idle client buckets until ctx is cancelled
func (s *SecurityService) Run(ctx context.Context) {
	s.limiterStore.Run(ctx, s.cleanupInterval)
}

// TrackedClients returns the number of buckets held in memory
func (s *SecurityService) TrackedClients() int {
	return s.limiterStore.Len()
}
