package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimestampType(t *testing.T) {
	assert.Equal(t, "TIMESTAMPTZ", timestampType(DialectPostgres))
	assert.Equal(t, "DATETIME(6)", timestampType(DialectMySQL))
	assert.Equal(t, "DATETIME", timestampType(DialectSQLite))
}

func TestCreateUsersTable(t *testing.T) {
	migration := createUsersTable()

	assert.Equal(t, "create_users_table", migration.Name)
	assert.Equal(t, "users", migration.TableName)

	testCases := []struct {
		dialect Dialect
		wantID  string
	}{
		{DialectPostgres, "user_id BIGSERIAL PRIMARY KEY"},
		{DialectMySQL, "user_id BIGINT AUTO_INCREMENT PRIMARY KEY"},
		{DialectSQLite, "user_id INTEGER PRIMARY KEY AUTOINCREMENT"},
	}

	for _, tc := range testCases {
		t.Run(string(tc.dialect), func(t *testing.T) {
			stmts := migration.Statements(tc.dialect)
			assert.Len(t, stmts, 1)
			assert.Contains(t, stmts[0], tc.wantID)
			assert.Contains(t, stmts[0], "UNIQUE (email)")
		})
	}
}

func TestCreatePasswordResetsTable(t *testing.T) {
	migration := createPasswordResetsTable()
	assert.Equal(t, "password_resets", migration.TableName)

	stmts := migration.Statements(DialectPostgres)
	assert.Len(t, stmts, 4)

	table := stmts[0]
	for _, column := range []string{
		"otp_hash VARCHAR(255) NOT NULL",
		"reset_token_hash VARCHAR(255) NULL",
		"reset_token_expires_at TIMESTAMPTZ NULL",
		"otp_verified_at TIMESTAMPTZ NULL",
		"attempts INTEGER NOT NULL DEFAULT 0",
		"REFERENCES users(user_id) ON DELETE CASCADE",
	} {
		assert.Contains(t, table, column)
	}

	assert.Equal(t, "CREATE INDEX IF NOT EXISTS idx_password_resets_email_created ON password_resets (email, created_at)", stmts[1])
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS idx_password_resets_ip_created ON password_resets (ip_address, created_at)", stmts[2])
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS idx_password_resets_user ON password_resets (user_id)", stmts[3])
}

func TestCreatePasswordResetsTable_MySQLIndexes(t *testing.T) {
	stmts := createPasswordResetsTable().Statements(DialectMySQL)

	assert.Contains(t, stmts[0], "DATETIME(6)")
	for _, stmt := range stmts[1:] {
		assert.True(t, strings.HasPrefix(stmt, "CREATE INDEX idx_"), stmt)
		assert.NotContains(t, stmt, "IF NOT EXISTS")
	}
}

func TestCreateSecurityAuditEventsTable(t *testing.T) {
	migration := createSecurityAuditEventsTable()
	assert.Equal(t, "security_audit_events", migration.TableName)

	stmts := migration.Statements(DialectSQLite)
	assert.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "event VARCHAR(64) NOT NULL")
	assert.Contains(t, stmts[0], "created_at DATETIME NOT NULL")
	assert.Contains(t, stmts[1], "idx_security_audit_user_created")
}
