package migrations

// timestampType is the column type that round-trips time.Time on each engine
func timestampType(d Dialect) string {
	switch d {
	case DialectMySQL:
		return "DATETIME(6)"
	case DialectSQLite:
		return "DATETIME"
	default:
		return "TIMESTAMPTZ"
	}
}

// createUsersTable creates the users table
func createUsersTable() Migration {
	return Migration{
		Name:        "create_users_table",
		Description: "Creates the users table",
		TableName:   "users",
		Statements: func(d Dialect) []string {
			ts := timestampType(d)

			var id string
			switch d {
			case DialectMySQL:
				id = "user_id BIGINT AUTO_INCREMENT PRIMARY KEY"
			case DialectSQLite:
				id = "user_id INTEGER PRIMARY KEY AUTOINCREMENT"
			default:
				id = "user_id BIGSERIAL PRIMARY KEY"
			}

			return []string{`
				CREATE TABLE IF NOT EXISTS users (
					` + id + `,
					email VARCHAR(254) NOT NULL,
					password_hash VARCHAR(255) NOT NULL,
					created_at ` + ts + ` NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at ` + ts + ` NOT NULL DEFAULT CURRENT_TIMESTAMP,
					CONSTRAINT uq_users_email UNIQUE (email)
				)`,
			}
		},
	}
}

// createPasswordResetsTable creates the password_resets table.
// One row per issued code; the reset token lives in sibling columns so
// the code hash is still readable after verification.
func createPasswordResetsTable() Migration {
	return Migration{
		Name:        "create_password_resets_table",
		Description: "Creates the password_resets table",
		TableName:   "password_resets",
		Statements: func(d Dialect) []string {
			ts := timestampType(d)

			table := `
				CREATE TABLE IF NOT EXISTS password_resets (
					id VARCHAR(36) PRIMARY KEY,
					user_id BIGINT NOT NULL,
					email VARCHAR(254) NOT NULL,
					otp_hash VARCHAR(255) NOT NULL,
					created_at ` + ts + ` NOT NULL,
					expires_at ` + ts + ` NOT NULL,
					used BOOLEAN NOT NULL DEFAULT FALSE,
					attempts INTEGER NOT NULL DEFAULT 0,
					ip_address VARCHAR(45) NOT NULL,
					reset_token_hash VARCHAR(255) NULL,
					reset_token_expires_at ` + ts + ` NULL,
					otp_verified_at ` + ts + ` NULL,
					updated_at ` + ts + ` NOT NULL,
					CONSTRAINT fk_password_resets_user FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
				)`

			return append([]string{table}, indexStatements(d, "password_resets", [][2]string{
				{"idx_password_resets_email_created", "email, created_at"},
				{"idx_password_resets_ip_created", "ip_address, created_at"},
				{"idx_password_resets_user", "user_id"},
			})...)
		},
	}
}

// createSecurityAuditEventsTable creates the security_audit_events table
func createSecurityAuditEventsTable() Migration {
	return Migration{
		Name:        "create_security_audit_events_table",
		Description: "Creates the security_audit_events table",
		TableName:   "security_audit_events",
		Statements: func(d Dialect) []string {
			table := `
				CREATE TABLE IF NOT EXISTS security_audit_events (
					id VARCHAR(36) PRIMARY KEY,
					user_id BIGINT NOT NULL,
					event VARCHAR(64) NOT NULL,
					ip_address VARCHAR(45) NOT NULL,
					created_at ` + timestampType(d) + ` NOT NULL
				)`

			return append([]string{table}, indexStatements(d, "security_audit_events", [][2]string{
				{"idx_security_audit_user_created", "user_id, created_at"},
			})...)
		},
	}
}

// indexStatements renders CREATE INDEX statements. MySQL has no
// IF NOT EXISTS for indexes, which is safe because the migration only
// runs when its table is missing.
func indexStatements(d Dialect, table string, indexes [][2]string) []string {
	prefix := "CREATE INDEX IF NOT EXISTS "
	if d == DialectMySQL {
		prefix = "CREATE INDEX "
	}

	stmts := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		stmts = append(stmts, prefix+idx[0]+" ON "+table+" ("+idx[1]+")")
	}
	return stmts
}
