package handlers

import (
	"context"
)

// DatabaseServiceInterface defines methods required from DatabaseService
type DatabaseServiceInterface interface {
	CheckHealth(ctx context.Context) error
	Driver() string
}
