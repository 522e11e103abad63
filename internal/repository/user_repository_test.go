package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundocerca/backend/internal/database"
	"github.com/mundocerca/backend/internal/repository"
	"github.com/mundocerca/backend/internal/utils"
)

// setupUserRepositoryTest creates a new test database connection and mock
func setupUserRepositoryTest(t *testing.T) (*repository.SQLUserRepository, sqlmock.Sqlmock, func()) {
	// Create a new SQL mock database
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	// Create a new repository with the mocked database
	repo := repository.NewUserRepository(&database.Pool{DB: db}).(*repository.SQLUserRepository)

	// Return the repository, mock and a cleanup function
	return repo, mock, func() {
		db.Close()
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	// Set up the test
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"user_id", "email", "password_hash", "created_at", "updated_at"}).
		AddRow(1, "test@example.com", "hashed_password", now, now)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE LOWER\\(email\\) = LOWER\\(\\?\\)").
		WithArgs("test@example.com").
		WillReturnRows(rows)

	// Execute the method being tested
	user, err := repo.GetByEmail(context.Background(), "test@example.com")

	// Assert the results
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, "hashed_password", user.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("missing@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "email", "password_hash", "created_at", "updated_at"}))

	user, err := repo.GetByEmail(context.Background(), "missing@example.com")

	assert.Nil(t, user)
	assert.True(t, utils.IsNotFoundError(err), "missing user should map to a not found error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_DatabaseError(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("test@example.com").
		WillReturnError(errors.New("database connection error"))

	_, err := repo.GetByEmail(context.Background(), "test@example.com")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get user by email")
	assert.False(t, utils.IsNotFoundError(err))
}

func TestUserRepository_UpdatePasswordHash(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE users SET password_hash = \\?, updated_at = \\? WHERE user_id = \\?").
		WithArgs("new_hash", now, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePasswordHash(context.Background(), 1, "new_hash", now)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdatePasswordHash_NotFound(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE users").
		WithArgs("new_hash", now, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePasswordHash(context.Background(), 99, "new_hash", now)

	assert.True(t, utils.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdatePasswordHash_DatabaseError(t *testing.T) {
	repo, mock, cleanup := setupUserRepositoryTest(t)
	defer cleanup()

	mock.ExpectExec("UPDATE users").WillReturnError(errors.New("read-only transaction"))

	err := repo.UpdatePasswordHash(context.Background(), 1, "new_hash", time.Now())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update password")
}
