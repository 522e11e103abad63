package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundocerca/backend/internal/database"
	"github.com/mundocerca/backend/internal/models"
	"github.com/mundocerca/backend/internal/repository"
	"github.com/mundocerca/backend/internal/utils"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var resetColumnNames = []string{
	"id", "user_id", "email", "otp_hash", "created_at", "expires_at", "used", "attempts",
	"ip_address", "reset_token_hash", "reset_token_expires_at", "otp_verified_at", "updated_at",
}

// setupPasswordResetRepositoryTest creates a repository over a mocked database
func setupPasswordResetRepositoryTest(t *testing.T) (repository.PasswordResetRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := repository.NewPasswordResetRepository(&database.Pool{DB: db})

	return repo, mock, func() {
		db.Close()
	}
}

func TestPasswordResetRepository_CountByEmailSince(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	since := testNow.Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM password_resets WHERE email = ? AND created_at > ?")).
		WithArgs("ana@example.com", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByEmailSince(context.Background(), "ana@example.com", since)

	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_CountByIPSince_Error(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	since := testNow.Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE ip_address = ? AND created_at > ?")).
		WithArgs("203.0.113.9", since).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.CountByIPSince(context.Background(), "203.0.113.9", since)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count password resets")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_GetLatestByEmail(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	tokenExpiry := testNow.Add(5 * time.Minute)
	rows := sqlmock.NewRows(resetColumnNames).AddRow(
		"rec-1", 42, "ana@example.com", "otp-hash", testNow, testNow.Add(10*time.Minute), false, 1,
		"203.0.113.9", "token-hash", tokenExpiry, testNow, testNow,
	)
	mock.ExpectQuery("SELECT (.+) FROM password_resets WHERE email = \\? ORDER BY created_at DESC LIMIT 1").
		WithArgs("ana@example.com").
		WillReturnRows(rows)

	record, err := repo.GetLatestByEmail(context.Background(), "ana@example.com")

	require.NoError(t, err)
	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, int64(42), record.UserID)
	assert.Equal(t, 1, record.Attempts)
	require.NotNil(t, record.ResetTokenHash)
	assert.Equal(t, "token-hash", *record.ResetTokenHash)
	require.NotNil(t, record.ResetTokenExpiresAt)
	assert.True(t, tokenExpiry.Equal(*record.ResetTokenExpiresAt))
	require.NotNil(t, record.OTPVerifiedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_GetLatestByEmail_NotFound(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM password_resets").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(resetColumnNames))

	record, err := repo.GetLatestByEmail(context.Background(), "nobody@example.com")

	assert.Nil(t, record)
	assert.True(t, utils.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_GetActiveOTPByEmail(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	rows := sqlmock.NewRows(resetColumnNames).AddRow(
		"rec-2", 42, "ana@example.com", "otp-hash", testNow, testNow.Add(10*time.Minute), false, 0,
		"203.0.113.9", nil, nil, nil, testNow,
	)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE email = ? AND used = FALSE AND otp_verified_at IS NULL AND expires_at > ?")).
		WithArgs("ana@example.com", testNow).
		WillReturnRows(rows)

	record, err := repo.GetActiveOTPByEmail(context.Background(), "ana@example.com", testNow)

	require.NoError(t, err)
	assert.Equal(t, "rec-2", record.ID)
	assert.Nil(t, record.ResetTokenHash)
	assert.Nil(t, record.ResetTokenExpiresAt)
	assert.Nil(t, record.OTPVerifiedAt)
	assert.True(t, record.OTPActive(testNow))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_GetLiveTokenByEmail_NotFound(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("reset_token_hash IS NOT NULL AND reset_token_expires_at > ?")).
		WithArgs("ana@example.com", testNow).
		WillReturnRows(sqlmock.NewRows(resetColumnNames))

	_, err := repo.GetLiveTokenByEmail(context.Background(), "ana@example.com", testNow)

	assert.True(t, utils.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_CreateAndInvalidatePrevious(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	record := models.NewPasswordReset(42, "ana@example.com", "otp-hash", "203.0.113.9", testNow, 10*time.Minute)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE password_resets SET used = TRUE, updated_at = ? WHERE email = ? AND used = FALSE")).
		WithArgs(testNow, "ana@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO password_resets").
		WithArgs(record.ID, int64(42), "ana@example.com", "otp-hash", testNow, testNow.Add(10*time.Minute), "203.0.113.9", testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateAndInvalidatePrevious(context.Background(), record)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_CreateAndInvalidatePrevious_RollsBack(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	record := models.NewPasswordReset(42, "ana@example.com", "otp-hash", "203.0.113.9", testNow, 10*time.Minute)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE password_resets").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO password_resets").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.CreateAndInvalidatePrevious(context.Background(), record)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create password reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_MarkUsed(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE password_resets SET used = TRUE, updated_at = ? WHERE id = ?")).
		WithArgs(testNow, "rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.MarkUsed(context.Background(), "rec-1", testNow))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_RecordFailedAttempt(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		used     bool
	}{
		{"Below the cap", 3, false},
		{"Reaching the cap burns the record", 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
			defer cleanup()

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta("SET used = CASE WHEN attempts + 1 >= ? THEN TRUE ELSE used END")).
				WithArgs(5, testNow, "rec-1").
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectQuery(regexp.QuoteMeta("SELECT attempts, used FROM password_resets WHERE id = ?")).
				WithArgs("rec-1").
				WillReturnRows(sqlmock.NewRows([]string{"attempts", "used"}).AddRow(tt.attempts, tt.used))
			mock.ExpectCommit()

			attempts, used, err := repo.RecordFailedAttempt(context.Background(), "rec-1", 5, testNow)

			require.NoError(t, err)
			assert.Equal(t, tt.attempts, attempts)
			assert.Equal(t, tt.used, used)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPasswordResetRepository_RecordFailedAttempt_NoLongerActive(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE password_resets").
		WithArgs(5, testNow, "rec-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, _, err := repo.RecordFailedAttempt(context.Background(), "rec-1", 5, testNow)

	assert.True(t, utils.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_IssueResetToken(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"Issued", 1, true},
		{"Lost the race", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
			defer cleanup()

			expiry := testNow.Add(5 * time.Minute)
			mock.ExpectExec(regexp.QuoteMeta("SET reset_token_hash = ?, reset_token_expires_at = ?, otp_verified_at = ?")).
				WithArgs("token-hash", expiry, testNow, testNow, "rec-1", testNow).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			issued, err := repo.IssueResetToken(context.Background(), "rec-1", "token-hash", expiry, testNow)

			assert.NoError(t, err)
			assert.Equal(t, tt.want, issued)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPasswordResetRepository_ConsumeToken(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND used = FALSE AND reset_token_hash IS NOT NULL AND reset_token_expires_at > ?")).
		WithArgs(testNow, "rec-1", testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE password_resets").
		WithArgs(testNow, "rec-1", testNow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.ConsumeToken(context.Background(), "rec-1", testNow)
	require.NoError(t, err)
	second, err := repo.ConsumeToken(context.Background(), "rec-1", testNow)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_ConsumeToken_Error(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	mock.ExpectExec("UPDATE password_resets").WillReturnError(errors.New("deadlock"))

	ok, err := repo.ConsumeToken(context.Background(), "rec-1", testNow)

	assert.False(t, ok)
	assert.Contains(t, err.Error(), "failed to consume reset token")
}

func TestPasswordResetRepository_InvalidateAllForUser(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("WHERE user_id = ? AND used = FALSE")).
		WithArgs(testNow, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	rows, err := repo.InvalidateAllForUser(context.Background(), 42, testNow)

	assert.NoError(t, err)
	assert.Equal(t, int64(2), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_DeleteExpired(t *testing.T) {
	repo, mock, cleanup := setupPasswordResetRepositoryTest(t)
	defer cleanup()

	cutoff := testNow.Add(-24 * time.Hour)
	mock.ExpectExec("DELETE FROM password_resets").
		WithArgs(cutoff, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	rows, err := repo.DeleteExpired(context.Background(), cutoff)

	assert.NoError(t, err)
	assert.Equal(t, int64(7), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_RebindsForPostgres(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewPasswordResetRepository(database.NewPool(db, "postgres"))
	since := testNow.Add(-time.Hour)

	mock.ExpectQuery("SELECT COUNT(*) FROM password_resets WHERE ip_address = $1 AND created_at > $2").
		WithArgs("203.0.113.9", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountByIPSince(context.Background(), "203.0.113.9", since)

	assert.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
