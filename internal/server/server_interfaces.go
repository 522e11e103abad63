package server

import (
	"context"
)

// ResetReaper deletes stale password reset records.
// *service.PasswordResetService satisfies it.
type ResetReaper interface {
	// CleanupExpired removes records past retention and reports how many went
	CleanupExpired(ctx context.Context) (int64, error)
}
