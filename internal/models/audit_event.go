package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mundocerca/backend/internal/constants"
)

// SecurityAuditEvent records a security relevant account change.
// It never holds a password, code or token.
type SecurityAuditEvent struct {
	ID        string    `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Event     string    `json:"event" db:"event"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewSecurityAuditEvent creates an event stamped at now.
func NewSecurityAuditEvent(userID int64, event, ip string, now time.Time) *SecurityAuditEvent {
	return &SecurityAuditEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Event:     event,
		IPAddress: ip,
		CreatedAt: now.UTC(),
	}
}

// TableName returns the database table name for the SecurityAuditEvent model.
func (e *SecurityAuditEvent) TableName() string {
	return constants.TableSecurityAuditEvents
}
