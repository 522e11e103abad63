// Package constants provides shared constant values used throughout the application.
//
// The database_const.go file defines database-related constants such as
// driver names, table names and column names. Using these constants keeps
// queries, migrations and log redaction in agreement about the schema.
package constants

// Database Drivers define the database/sql driver names accepted by database.driver.
const (
	// DriverPostgres uses github.com/lib/pq. Works against PostgreSQL and Supabase.
	DriverPostgres = "postgres"

	// DriverPgx uses the database/sql adapter of github.com/jackc/pgx/v5.
	DriverPgx = "pgx"

	// DriverMySQL uses github.com/go-sql-driver/mysql. Works against MySQL and MariaDB.
	DriverMySQL = "mysql"

	// DriverSQLite uses github.com/mattn/go-sqlite3 for single-node deployments.
	DriverSQLite = "sqlite3"
)

// Database Tables
const (
	TableUsers               = "users"
	TablePasswordResets      = "password_resets"
	TableSecurityAuditEvents = "security_audit_events"
	TableMigrations          = "migrations"
)

// Users Table Columns
const (
	ColumnUserID       = "user_id"
	ColumnEmail        = "email"
	ColumnPasswordHash = "password_hash"
	ColumnCreatedAt    = "created_at"
	ColumnUpdatedAt    = "updated_at"
)

// Password Resets Table Columns
const (
	ColumnResetID             = "id"
	ColumnOTPHash             = "otp_hash"
	ColumnExpiresAt           = "expires_at"
	ColumnUsed                = "used"
	ColumnAttempts            = "attempts"
	ColumnIPAddress           = "ip_address"
	ColumnResetTokenHash      = "reset_token_hash"
	ColumnResetTokenExpiresAt = "reset_token_expires_at"
	ColumnOTPVerifiedAt       = "otp_verified_at"
)

// Security Audit Events Table Columns
const (
	ColumnAuditID    = "id"
	ColumnAuditEvent = "event"
)

// Database Error Codes
const (
	// PostgresUniqueViolation is the SQLSTATE for unique_violation.
	PostgresUniqueViolation = "23505"

	// PostgresForeignKeyViolation is the SQLSTATE for foreign_key_violation.
	PostgresForeignKeyViolation = "23503"

	// MySQLDuplicateEntry is the MySQL error number for ER_DUP_ENTRY.
	MySQLDuplicateEntry = 1062

	// MySQLForeignKeyViolation is the MySQL error number for ER_NO_REFERENCED_ROW_2.
	MySQLForeignKeyViolation = 1452
)
