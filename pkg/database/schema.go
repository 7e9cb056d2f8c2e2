package database

import (
	"context"
	"fmt"
)

// Dialect selects the DDL flavour
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		email       TEXT NOT NULL DEFAULT '',
		platforms   JSONB NOT NULL DEFAULT '{}'::jsonb,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS stats_records (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		platform      TEXT NOT NULL CHECK (platform IN ('leetcode', 'codeforces', 'codechef', 'w3schools')),
		username      TEXT NOT NULL,
		snapshot      JSONB NOT NULL DEFAULT '{}'::jsonb,
		history       JSONB NOT NULL DEFAULT '[]'::jsonb,
		last_fetched  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		fetch_errors  INTEGER NOT NULL DEFAULT 0,
		last_error    TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT uq_stats_records_user_platform UNIQUE (user_id, platform)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stats_records_last_fetched ON stats_records (last_fetched)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		email       TEXT NOT NULL DEFAULT '',
		platforms   TEXT NOT NULL DEFAULT '{}',
		is_active   INTEGER NOT NULL DEFAULT 1,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stats_records (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		platform      TEXT NOT NULL CHECK (platform IN ('leetcode', 'codeforces', 'codechef', 'w3schools')),
		username      TEXT NOT NULL,
		snapshot      TEXT NOT NULL DEFAULT '{}',
		history       TEXT NOT NULL DEFAULT '[]',
		last_fetched  TIMESTAMP NOT NULL,
		is_active     INTEGER NOT NULL DEFAULT 1,
		fetch_errors  INTEGER NOT NULL DEFAULT 0,
		last_error    TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMP NOT NULL,
		updated_at    TIMESTAMP NOT NULL,
		UNIQUE (user_id, platform)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stats_records_last_fetched ON stats_records (last_fetched)`,
}

// Migrate creates the users and stats_records tables if they are missing
func Migrate(ctx context.Context, db *DB) error {
	statements := postgresSchema
	if db.Dialect == DialectSQLite {
		statements = sqliteSchema
	}
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}
