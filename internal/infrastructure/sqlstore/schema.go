package sqlstore

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		business_number TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS certificates (
		id            TEXT PRIMARY KEY,
		client_id     TEXT NOT NULL REFERENCES clients(id),
		name          TEXT NOT NULL,
		issuer        TEXT NOT NULL,
		registered_at TIMESTAMPTZ NOT NULL,
		expires_at    TIMESTAMPTZ NOT NULL,
		type          TEXT NOT NULL CHECK (type IN ('individual', 'corporate'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_certificates_client ON certificates(client_id, registered_at)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id             TEXT PRIMARY KEY,
		client_id      TEXT NOT NULL REFERENCES clients(id),
		bank_name      TEXT NOT NULL,
		bank_code      TEXT NOT NULL,
		account_number TEXT NOT NULL,
		account_holder TEXT NOT NULL DEFAULT '',
		account_type   TEXT NOT NULL CHECK (account_type IN ('deposit', 'savings', 'checking')),
		balance        NUMERIC(18, 2),
		certificate_id TEXT REFERENCES certificates(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_client ON accounts(client_id)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_certificate ON accounts(certificate_id)`,
	`CREATE TABLE IF NOT EXISTS operators (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// SQLite has no TIMESTAMPTZ or NUMERIC precision; balances are stored as decimal text.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		business_number TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS certificates (
		id            TEXT PRIMARY KEY,
		client_id     TEXT NOT NULL REFERENCES clients(id),
		name          TEXT NOT NULL,
		issuer        TEXT NOT NULL,
		registered_at TIMESTAMP NOT NULL,
		expires_at    TIMESTAMP NOT NULL,
		type          TEXT NOT NULL CHECK (type IN ('individual', 'corporate'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_certificates_client ON certificates(client_id, registered_at)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id             TEXT PRIMARY KEY,
		client_id      TEXT NOT NULL REFERENCES clients(id),
		bank_name      TEXT NOT NULL,
		bank_code      TEXT NOT NULL,
		account_number TEXT NOT NULL,
		account_holder TEXT NOT NULL DEFAULT '',
		account_type   TEXT NOT NULL CHECK (account_type IN ('deposit', 'savings', 'checking')),
		balance        TEXT,
		certificate_id TEXT REFERENCES certificates(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_client ON accounts(client_id)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_certificate ON accounts(certificate_id)`,
	`CREATE TABLE IF NOT EXISTS operators (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Migrate creates the tables when they do not exist yet
func (db *DB) Migrate(ctx context.Context) error {
	statements := postgresSchema
	if db.driver == DriverSQLite {
		statements = sqliteSchema
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
