package constants

import "time"

// Server Timeouts
const (
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
)

// Database Timeouts
const (
	DBConnectionTimeout   = 10 * time.Second
	DBHealthCheckTimeout  = 5 * time.Second
	DBConnMaxLifetime     = 1 * time.Hour
	DBConnMaxIdleTime     = 30 * time.Minute
	DBMaintenanceInterval = 1 * time.Hour
	DBMaintenanceTimeout  = 5 * time.Minute
)

// Background Work Timeouts
const (
	// DefaultEmailSendTimeout bounds a single fire-and-forget delivery attempt.
	DefaultEmailSendTimeout = 15 * time.Second

	// AuditWriteTimeout bounds the best-effort audit insert after a password change.
	AuditWriteTimeout = 5 * time.Second

	// ThrottleCleanupInterval is how often idle client limiters are evicted.
	ThrottleCleanupInterval = 10 * time.Minute

	// ThrottleIdleTTL is how long a client limiter may sit unused before eviction.
	ThrottleIdleTTL = 30 * time.Minute
)
