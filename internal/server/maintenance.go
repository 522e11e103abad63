package server

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Maintenance periodically deletes password reset records that can no
// longer be used and have left the rate-limit window.
type Maintenance struct {
	reaper   ResetReaper
	interval time.Duration
	timeout  time.Duration
}

// NewMaintenance creates a maintenance loop around reaper
func NewMaintenance(reaper ResetReaper, interval, timeout time.Duration) *Maintenance {
	return &Maintenance{
		reaper:   reaper,
		interval: interval,
		timeout:  timeout,
	}
}

// Run ticks until ctx is cancelled
func (m *Maintenance) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single cleanup pass bounded by the configured timeout
func (m *Maintenance) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// the reaper logs what it removed
	if _, err := m.reaper.CleanupExpired(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to cleanup expired password resets")
	}
}
