package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultCategory is used for clients whose category has no dedicated rate
const defaultCategory = "default"

// Store manages rate limiters for multiple clients.
// Limiters are keyed by category and client, so one client has an independent
// bucket per category.
type Store struct {
	// limiters maps category+client identifiers to their rate limiters
	limiters map[string]*Limiter

	// rates defines different rate limits for different categories
	rates map[string]Rate

	mu sync.RWMutex

	// idleTTL is how long a limiter may go unused before cleanup removes it
	idleTTL time.Duration

	// maxClients bounds the map; beyond it cleanup drops every idle limiter at once
	maxClients int

	now func() time.Time
}

// NewStore creates a new store for managing rate limiters.
//
// Parameters:
//   - defaultRate: The default rate limit for clients
//   - idleTTL: How long an unused limiter is kept
//   - maxClients: The number of limiters tracked before a forced cleanup
func NewStore(defaultRate Rate, idleTTL time.Duration, maxClients int) *Store {
	return &Store{
		limiters:   make(map[string]*Limiter),
		rates:      map[string]Rate{defaultCategory: defaultRate},
		idleTTL:    idleTTL,
		maxClients: maxClients,
		now:        time.Now,
	}
}

// GetLimiter returns a rate limiter for the specified client.
// If a limiter doesn't exist for the client, a new one is created.
func (s *Store) GetLimiter(clientID string, category string) *Limiter {
	key := category + "|" + clientID

	s.mu.RLock()
	limiter, exists := s.limiters[key]
	s.mu.RUnlock()

	if exists {
		return limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// another request may have created it while we waited for the lock
	if limiter, exists = s.limiters[key]; exists {
		return limiter
	}

	rate, exists := s.rates[category]
	if !exists {
		rate = s.rates[defaultCategory]
	}

	if s.maxClients > 0 && len(s.limiters) >= s.maxClients {
		s.evictIdleLocked(s.now())
	}

	limiter = newLimiterAt(rate.RequestsPerSecond, rate.Burst, s.now)
	s.limiters[key] = limiter

	return limiter
}

// Allow consumes a token for the client and reports the wait when none is left
func (s *Store) Allow(clientID, category string) (bool, time.Duration) {
	limiter := s.GetLimiter(clientID, category)
	if limiter.Allow() {
		return true, 0
	}
	return false, limiter.RetryAfter()
}

// SetRate sets a rate limit for a specific category.
func (s *Store) SetRate(category string, rate Rate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[category] = rate
}

// Len returns the number of tracked limiters
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.limiters)
}

// Run removes idle limiters every interval until ctx is cancelled
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// Cleanup removes limiters that have been inactive for longer than the idle TTL
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if removed := s.evictIdleLocked(s.now()); removed > 0 {
		log.Debug().Int("removed", removed).Int("remaining", len(s.limiters)).Msg("Evicted idle rate limiters")
	}
}

// evictIdleLocked drops limiters idle past the TTL. Callers hold mu.
func (s *Store) evictIdleLocked(now time.Time) int {
	removed := 0
	for key, limiter := range s.limiters {
		if now.Sub(limiter.LastSeen()) > s.idleTTL {
			delete(s.limiters, key)
			removed++
		}
	}

	if s.maxClients > 0 && len(s.limiters) >= s.maxClients {
		log.Warn().Int("limiters", len(s.limiters)).Msg("Rate limiter store growing too large, resetting")
		removed += len(s.limiters)
		s.limiters = make(map[string]*Limiter)
	}

	return removed
}
