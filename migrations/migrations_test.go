package migrations_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundocerca/backend/internal/database"
	"github.com/mundocerca/backend/migrations"
)

// createMockDB creates a mock database for testing
func createMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return db, mock, cleanup
}

func TestNewMigrator(t *testing.T) {
	db, _, cleanup := createMockDB(t)
	defer cleanup()

	migrator := migrations.NewMigrator(database.NewPool(db, "postgres"))

	assert.NotNil(t, migrator)
}

func TestDialectForDriver(t *testing.T) {
	assert.Equal(t, migrations.DialectPostgres, migrations.DialectForDriver("postgres"))
	assert.Equal(t, migrations.DialectPostgres, migrations.DialectForDriver("pgx"))
	assert.Equal(t, migrations.DialectPostgres, migrations.DialectForDriver(""))
	assert.Equal(t, migrations.DialectMySQL, migrations.DialectForDriver("mysql"))
	assert.Equal(t, migrations.DialectSQLite, migrations.DialectForDriver("sqlite3"))
}

func TestGetMigrations(t *testing.T) {
	list := migrations.GetMigrations()
	require.Len(t, list, 3)

	// users must exist before password_resets references it
	assert.Equal(t, "users", list[0].TableName)
	assert.Equal(t, "password_resets", list[1].TableName)
	assert.Equal(t, "security_audit_events", list[2].TableName)
}

// expectTableCheck queues one information_schema lookup
func expectTableCheck(mock sqlmock.Sqlmock, table string, count int) {
	mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM information_schema.tables`).
		WithArgs(table).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func TestRunMigrations(t *testing.T) {
	tables := []string{"users", "password_resets", "security_audit_events"}

	tests := []struct {
		name    string
		setup   func(sqlmock.Sqlmock)
		wantErr string
	}{
		{
			name: "Error - Create migrations table fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").
					WillReturnError(errors.New("permission denied"))
			},
			wantErr: "failed to create migrations table",
		},
		{
			name: "Error - Get executed migrations fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT name FROM migrations").
					WillReturnError(errors.New("boom"))
			},
			wantErr: "failed to get executed migrations",
		},
		{
			name: "Error - Table exists check fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT name FROM migrations").
					WillReturnRows(sqlmock.NewRows([]string{"name"}))
				mock.ExpectQuery(`SELECT COUNT\(\*\)`).
					WillReturnError(errors.New("boom"))
			},
			wantErr: "failed to check if table users exists",
		},
		{
			name: "Success - Fresh database creates every table",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT name FROM migrations").
					WillReturnRows(sqlmock.NewRows([]string{"name"}))

				expectTableCheck(mock, "users", 0)
				mock.ExpectBegin()
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(`INSERT INTO migrations \(name, description\) VALUES \(\$1, \$2\)`).
					WithArgs("create_users_table", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()

				expectTableCheck(mock, "password_resets", 0)
				mock.ExpectBegin()
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS password_resets").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_password_resets_email_created").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_password_resets_ip_created").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_password_resets_user").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO migrations").
					WithArgs("create_password_resets_table", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()

				expectTableCheck(mock, "security_audit_events", 0)
				mock.ExpectBegin()
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS security_audit_events").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_security_audit_user_created").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO migrations").
					WithArgs("create_security_audit_events_table", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "Success - Existing tables are only recorded",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT name FROM migrations").
					WillReturnRows(sqlmock.NewRows([]string{"name"}))

				for _, table := range tables {
					expectTableCheck(mock, table, 1)
					mock.ExpectExec("INSERT INTO migrations").
						WillReturnResult(sqlmock.NewResult(1, 1))
				}
			},
		},
		{
			name: "Success - Everything recorded is a no-op",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT name FROM migrations").
					WillReturnRows(sqlmock.NewRows([]string{"name"}).
						AddRow("create_users_table").
						AddRow("create_password_resets_table").
						AddRow("create_security_audit_events_table"))

				for _, table := range tables {
					expectTableCheck(mock, table, 1)
				}
			},
		},
		{
			name: "Success - Recorded but missing table is recreated without a second record",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT name FROM migrations").
					WillReturnRows(sqlmock.NewRows([]string{"name"}).
						AddRow("create_users_table").
						AddRow("create_password_resets_table").
						AddRow("create_security_audit_events_table"))

				expectTableCheck(mock, "users", 1)
				expectTableCheck(mock, "password_resets", 1)
				expectTableCheck(mock, "security_audit_events", 0)
				mock.ExpectBegin()
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS security_audit_events").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_security_audit_user_created").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
			},
		},
		{
			name: "Error - Failed DDL rolls back",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT name FROM migrations").
					WillReturnRows(sqlmock.NewRows([]string{"name"}))

				expectTableCheck(mock, "users", 0)
				mock.ExpectBegin()
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("syntax error"))
				mock.ExpectRollback()
			},
			wantErr: "migration create_users_table failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := createMockDB(t)
			defer cleanup()

			tt.setup(mock)

			migrator := migrations.NewMigrator(database.NewPool(db, "postgres"))
			err := migrator.RunMigrations(context.Background())

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRunMigrations_SQLiteUsesSqliteMaster(t *testing.T) {
	db, mock, cleanup := createMockDB(t)
	defer cleanup()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT name FROM migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("create_users_table").
			AddRow("create_password_resets_table").
			AddRow("create_security_audit_events_table"))
	for _, table := range []string{"users", "password_resets", "security_audit_events"} {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sqlite_master WHERE type = 'table' AND name = \?`).
			WithArgs(table).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	}

	err := migrations.NewMigrator(database.NewPool(db, "sqlite3")).RunMigrations(context.Background())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_MySQLUsesCurrentDatabase(t *testing.T) {
	db, mock, cleanup := createMockDB(t)
	defer cleanup()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT name FROM migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectQuery(`table_schema = DATABASE\(\)`).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO migrations \(name, description\) VALUES \(\?, \?\)`).
		WillReturnError(errors.New("read-only"))

	err := migrations.NewMigrator(database.NewPool(db, "mysql")).RunMigrations(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record migration create_users_table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationProperties(t *testing.T) {
	for _, migration := range migrations.GetMigrations() {
		t.Run(migration.Name, func(t *testing.T) {
			assert.NotEmpty(t, migration.Name)
			assert.NotEmpty(t, migration.Description)
			assert.NotEmpty(t, migration.TableName)
			require.NotNil(t, migration.Statements)

			for _, d := range []migrations.Dialect{migrations.DialectPostgres, migrations.DialectMySQL, migrations.DialectSQLite} {
				stmts := migration.Statements(d)
				require.NotEmpty(t, stmts)
				assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS "+migration.TableName)
			}
		})
	}
}
