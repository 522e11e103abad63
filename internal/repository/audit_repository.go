package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mundocerca/backend/internal/database"
	"github.com/mundocerca/backend/internal/models"
	"github.com/mundocerca/backend/internal/utils"
)

// AuditRepository persists security audit events
type AuditRepository interface {
	Create(ctx context.Context, event *models.SecurityAuditEvent) error
}

// SQLAuditRepository is a database/sql implementation of AuditRepository
type SQLAuditRepository struct {
	db *database.Pool
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *database.Pool) AuditRepository {
	return &SQLAuditRepository{db: db}
}

// Create inserts a security audit event
func (r *SQLAuditRepository) Create(ctx context.Context, event *models.SecurityAuditEvent) error {
	startTime := time.Now()

	query := r.db.Rebind(`
        INSERT INTO security_audit_events (id, user_id, event, ip_address, created_at)
        VALUES (?, ?, ?, ?, ?)
    `)

	_, err := r.db.ExecContext(ctx, query, event.ID, event.UserID, event.Event, event.IPAddress, event.CreatedAt)

	utils.LogDBQuery(query, []interface{}{event.ID, event.UserID, event.Event}, time.Since(startTime), err)

	if err != nil {
		return fmt.Errorf("failed to create security audit event: %w", err)
	}
	return nil
}
