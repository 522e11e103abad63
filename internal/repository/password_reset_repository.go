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

// PasswordResetRepository defines the durable store of reset records.
// Every mutation is a single conditional statement or a single transaction, so
// concurrent requests for the same record resolve through row atomicity alone.
type PasswordResetRepository interface {
	// CountByEmailSince counts records for email created after since
	CountByEmailSince(ctx context.Context, email string, since time.Time) (int, error)

	// CountByIPSince counts records for ip created after since
	CountByIPSince(ctx context.Context, ip string, since time.Time) (int, error)

	// GetLatestByEmail returns the newest record for email regardless of status
	GetLatestByEmail(ctx context.Context, email string) (*models.PasswordReset, error)

	// CreateAndInvalidatePrevious burns every unused record for the email and inserts record
	CreateAndInvalidatePrevious(ctx context.Context, record *models.PasswordReset) error

	// GetActiveOTPByEmail returns the newest record whose code can still be verified
	GetActiveOTPByEmail(ctx context.Context, email string, now time.Time) (*models.PasswordReset, error)

	// MarkUsed burns a single record
	MarkUsed(ctx context.Context, id string, now time.Time) error

	// RecordFailedAttempt increments attempts and burns the record once maxAttempts is reached
	RecordFailedAttempt(ctx context.Context, id string, maxAttempts int, now time.Time) (attempts int, used bool, err error)

	// IssueResetToken stores the token hash if the code is still unverified and active
	IssueResetToken(ctx context.Context, id, tokenHash string, tokenExpiresAt, now time.Time) (bool, error)

	// GetLiveTokenByEmail returns the newest record with an unexpired, unused reset token
	GetLiveTokenByEmail(ctx context.Context, email string, now time.Time) (*models.PasswordReset, error)

	// ConsumeToken burns a record holding a live token; false means another request won
	ConsumeToken(ctx context.Context, id string, now time.Time) (bool, error)

	// InvalidateAllForUser burns every unused record of the user
	InvalidateAllForUser(ctx context.Context, userID int64, now time.Time) (int64, error)

	// DeleteExpired removes records whose code and token windows both ended before cutoff
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// SQLPasswordResetRepository implements PasswordResetRepository on any supported driver
type SQLPasswordResetRepository struct {
	db *database.Pool
}

// NewPasswordResetRepository creates a new PasswordResetRepository
func NewPasswordResetRepository(db *database.Pool) PasswordResetRepository {
	return &SQLPasswordResetRepository{db: db}
}

const resetColumns = `id, user_id, email, otp_hash, created_at, expires_at, used, attempts,
        ip_address, reset_token_hash, reset_token_expires_at, otp_verified_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPasswordReset(row rowScanner) (*models.PasswordReset, error) {
	var (
		record         models.PasswordReset
		tokenHash      sql.NullString
		tokenExpiresAt sql.NullTime
		verifiedAt     sql.NullTime
	)

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.Email,
		&record.OTPHash,
		&record.CreatedAt,
		&record.ExpiresAt,
		&record.Used,
		&record.Attempts,
		&record.IPAddress,
		&tokenHash,
		&tokenExpiresAt,
		&verifiedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tokenHash.Valid {
		record.ResetTokenHash = &tokenHash.String
	}
	if tokenExpiresAt.Valid {
		t := tokenExpiresAt.Time.UTC()
		record.ResetTokenExpiresAt = &t
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time.UTC()
		record.OTPVerifiedAt = &t
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.ExpiresAt = record.ExpiresAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()

	return &record, nil
}

// CountByEmailSince counts records for email created after since
func (r *SQLPasswordResetRepository) CountByEmailSince(ctx context.Context, email string, since time.Time) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM password_resets WHERE email = ? AND created_at > ?`)
	return r.count(ctx, query, email, since)
}

// CountByIPSince counts records for ip created after since
func (r *SQLPasswordResetRepository) CountByIPSince(ctx context.Context, ip string, since time.Time) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM password_resets WHERE ip_address = ? AND created_at > ?`)
	return r.count(ctx, query, ip, since)
}

func (r *SQLPasswordResetRepository) count(ctx context.Context, query string, key string, since time.Time) (int, error) {
	startTime := time.Now()

	var count int
	err := r.db.QueryRowContext(ctx, query, key, since.UTC()).Scan(&count)

	utils.LogDBQuery(query, []interface{}{key, since}, time.Since(startTime), err)

	if err != nil {
		return 0, fmt.Errorf("failed to count password resets: %w", err)
	}
	return count, nil
}

// GetLatestByEmail returns the newest record for email regardless of status
func (r *SQLPasswordResetRepository) GetLatestByEmail(ctx context.Context, email string) (*models.PasswordReset, error) {
	query := r.db.Rebind(`
        SELECT ` + resetColumns + `
        FROM password_resets
        WHERE email = ?
        ORDER BY created_at DESC
        LIMIT 1
    `)

	return r.getOne(ctx, query, "latest", email)
}

// GetActiveOTPByEmail returns the newest record whose code can still be verified
func (r *SQLPasswordResetRepository) GetActiveOTPByEmail(ctx context.Context, email string, now time.Time) (*models.PasswordReset, error) {
	query := r.db.Rebind(`
        SELECT ` + resetColumns + `
        FROM password_resets
        WHERE email = ? AND used = FALSE AND otp_verified_at IS NULL AND expires_at > ?
        ORDER BY created_at DESC
        LIMIT 1
    `)

	return r.getOne(ctx, query, "active code", email, now.UTC())
}

// GetLiveTokenByEmail returns the newest record with an unexpired, unused reset token
func (r *SQLPasswordResetRepository) GetLiveTokenByEmail(ctx context.Context, email string, now time.Time) (*models.PasswordReset, error) {
	query := r.db.Rebind(`
        SELECT ` + resetColumns + `
        FROM password_resets
        WHERE email = ? AND used = FALSE AND reset_token_hash IS NOT NULL AND reset_token_expires_at > ?
        ORDER BY created_at DESC
        LIMIT 1
    `)

	return r.getOne(ctx, query, "live token", email, now.UTC())
}

func (r *SQLPasswordResetRepository) getOne(ctx context.Context, query, what string, args ...interface{}) (*models.PasswordReset, error) {
	startTime := time.Now()

	record, err := scanPasswordReset(r.db.QueryRowContext(ctx, query, args...))

	utils.LogDBQuery(query, args, time.Since(startTime), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("PasswordReset", what)
		}
		return nil, fmt.Errorf("failed to get %s password reset: %w", what, err)
	}

	return record, nil
}

// CreateAndInvalidatePrevious burns every unused record for the email and inserts record
// in one transaction, so at most one record per email is ever active.
func (r *SQLPasswordResetRepository) CreateAndInvalidatePrevious(ctx context.Context, record *models.PasswordReset) error {
	startTime := time.Now()

	invalidate := r.db.Rebind(`
        UPDATE password_resets
        SET used = TRUE, updated_at = ?
        WHERE email = ? AND used = FALSE
    `)
	insert := r.db.Rebind(`
        INSERT INTO password_resets (id, user_id, email, otp_hash, created_at, expires_at, used, attempts, ip_address, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, FALSE, 0, ?, ?)
    `)

	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, invalidate, record.CreatedAt, record.Email); err != nil {
			return fmt.Errorf("failed to invalidate previous password resets: %w", err)
		}

		_, err := tx.ExecContext(ctx, insert,
			record.ID,
			record.UserID,
			record.Email,
			record.OTPHash,
			record.CreatedAt,
			record.ExpiresAt,
			record.IPAddress,
			record.UpdatedAt,
		)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return utils.NewDuplicateError("PasswordReset", "id", record.ID)
			}
			return fmt.Errorf("failed to create password reset: %w", err)
		}
		return nil
	})

	utils.LogDBQuery(insert, []interface{}{record.ID, record.UserID, record.Email, "[REDACTED]"}, time.Since(startTime), err)

	return err
}

// MarkUsed burns a single record
func (r *SQLPasswordResetRepository) MarkUsed(ctx context.Context, id string, now time.Time) error {
	query := r.db.Rebind(`UPDATE password_resets SET used = TRUE, updated_at = ? WHERE id = ?`)

	_, err := r.exec(ctx, query, now.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark password reset used: %w", err)
	}
	return nil
}

// RecordFailedAttempt increments attempts and burns the record once maxAttempts is reached.
// It returns utils.ErrNotFound when the record stopped being verifiable before the update.
func (r *SQLPasswordResetRepository) RecordFailedAttempt(ctx context.Context, id string, maxAttempts int, now time.Time) (int, bool, error) {
	startTime := time.Now()

	// used is assigned before attempts because MySQL evaluates SET left to right
	update := r.db.Rebind(`
        UPDATE password_resets
        SET used = CASE WHEN attempts + 1 >= ? THEN TRUE ELSE used END,
            attempts = attempts + 1,
            updated_at = ?
        WHERE id = ? AND used = FALSE AND otp_verified_at IS NULL
    `)
	selectQuery := r.db.Rebind(`SELECT attempts, used FROM password_resets WHERE id = ?`)

	var (
		attempts int
		used     bool
	)
	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, update, maxAttempts, now.UTC(), id)
		if err != nil {
			return fmt.Errorf("failed to record failed attempt: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return utils.NewNotFoundError("PasswordReset", id)
		}

		if err := tx.QueryRowContext(ctx, selectQuery, id).Scan(&attempts, &used); err != nil {
			return fmt.Errorf("failed to read attempts: %w", err)
		}
		return nil
	})

	utils.LogDBQuery(update, []interface{}{maxAttempts, now, id}, time.Since(startTime), err)

	if err != nil {
		return 0, false, err
	}
	return attempts, used, nil
}

// IssueResetToken stores the token hash if the code is still unverified and active.
// The same statement sets otp_verified_at, so a code can be exchanged only once.
func (r *SQLPasswordResetRepository) IssueResetToken(ctx context.Context, id, tokenHash string, tokenExpiresAt, now time.Time) (bool, error) {
	query := r.db.Rebind(`
        UPDATE password_resets
        SET reset_token_hash = ?, reset_token_expires_at = ?, otp_verified_at = ?, updated_at = ?
        WHERE id = ? AND used = FALSE AND otp_verified_at IS NULL AND expires_at > ?
    `)

	now = now.UTC()
	rows, err := r.exec(ctx, query, tokenHash, tokenExpiresAt.UTC(), now, now, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to issue reset token: %w", err)
	}
	return rows == 1, nil
}

// ConsumeToken burns a record holding a live token; false means another request won
func (r *SQLPasswordResetRepository) ConsumeToken(ctx context.Context, id string, now time.Time) (bool, error) {
	query := r.db.Rebind(`
        UPDATE password_resets
        SET used = TRUE, updated_at = ?
        WHERE id = ? AND used = FALSE AND reset_token_hash IS NOT NULL AND reset_token_expires_at > ?
    `)

	now = now.UTC()
	rows, err := r.exec(ctx, query, now, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to consume reset token: %w", err)
	}
	return rows == 1, nil
}

// InvalidateAllForUser burns every unused record of the user
func (r *SQLPasswordResetRepository) InvalidateAllForUser(ctx context.Context, userID int64, now time.Time) (int64, error) {
	query := r.db.Rebind(`UPDATE password_resets SET used = TRUE, updated_at = ? WHERE user_id = ? AND used = FALSE`)

	rows, err := r.exec(ctx, query, now.UTC(), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate password resets for user %d: %w", userID, err)
	}
	return rows, nil
}

// DeleteExpired removes records whose code and token windows both ended before cutoff
func (r *SQLPasswordResetRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := r.db.Rebind(`
        DELETE FROM password_resets
        WHERE expires_at < ? AND (reset_token_expires_at IS NULL OR reset_token_expires_at < ?)
    `)

	cutoff = cutoff.UTC()
	rows, err := r.exec(ctx, query, cutoff, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired password resets: %w", err)
	}
	return rows, nil
}

// exec runs a statement and returns the affected row count
func (r *SQLPasswordResetRepository) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	startTime := time.Now()

	result, err := r.db.ExecContext(ctx, query, args...)

	utils.LogDBQuery(query, args, time.Since(startTime), err)

	if err != nil {
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
