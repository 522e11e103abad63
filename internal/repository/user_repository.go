package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mundocerca/backend/internal/database"
	"github.com/mundocerca/backend/internal/models"
	"github.com/mundocerca/backend/internal/utils"
)

// UserRepository defines the user directory operations the reset flow relies on
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string, now time.Time) error
}

// SQLUserRepository is a database/sql implementation of UserRepository
type SQLUserRepository struct {
	db *database.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *database.Pool) UserRepository {
	return &SQLUserRepository{
		db: db,
	}
}

// GetByEmail retrieves a user by email
func (r *SQLUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	// Start query timer
	startTime := time.Now()

	// Case-insensitive so accounts created before normalization still match
	query := r.db.Rebind(`
        SELECT user_id, email, password_hash, created_at, updated_at
        FROM users
        WHERE LOWER(email) = LOWER(?)
    `)

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{email},
		time.Since(startTime),
		err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("User", "email")
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// UpdatePasswordHash replaces the stored password hash of a user
func (r *SQLUserRepository) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string, now time.Time) error {
	// Start query timer
	startTime := time.Now()

	query := r.db.Rebind(`
        UPDATE users
        SET password_hash = ?, updated_at = ?
        WHERE user_id = ?
    `)

	result, err := r.db.ExecContext(ctx, query, passwordHash, now.UTC(), id)

	// Log the query execution
	utils.LogDBQuery(
		query,
		[]interface{}{"[REDACTED]", now, id},
		time.Since(startTime),
		err,
	)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return utils.NewNotFoundError("User", id)
	}

	return nil
}
