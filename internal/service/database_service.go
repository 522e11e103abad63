package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mundocerca/backend/internal/database"
)

// HealthChecker is satisfied by *database.Pool
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DatabaseService exposes the database checks used by the health endpoint
type DatabaseService struct {
	db     HealthChecker
	driver string
}

// NewDatabaseService creates a new DatabaseService
func NewDatabaseService(db *database.Pool) *DatabaseService {
	return &DatabaseService{db: db, driver: db.Driver()}
}

// Driver returns the configured database driver name
func (s *DatabaseService) Driver() string {
	return s.driver
}

// CheckHealth pings the database and runs a trivial query
func (s *DatabaseService) CheckHealth(ctx context.Context) error {
	if err := s.db.HealthCheck(ctx); err != nil {
		log.Error().Err(err).Str("driver", s.driver).Msg("Database health check failed")
		return fmt.Errorf("database unavailable: %w", err)
	}
	return nil
}
