package userstore

import (
	"database/sql"
	"fmt"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    identifier    TEXT NOT NULL UNIQUE,
    full_name     TEXT NOT NULL,
    phone         TEXT NOT NULL,
    email         TEXT NOT NULL,
    registered_at TEXT NOT NULL,
    active        INTEGER NOT NULL DEFAULT 1
)`

const createInteractionsTable = `
CREATE TABLE IF NOT EXISTS interactions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id      INTEGER REFERENCES users(id),
    session_id   TEXT NOT NULL,
    user_message TEXT NOT NULL,
    bot_reply    TEXT NOT NULL,
    created_at   TEXT NOT NULL,
    query_type   TEXT,
    satisfaction INTEGER
)`

const createDailyMetricsTable = `
CREATE TABLE IF NOT EXISTS daily_metrics (
    day               TEXT PRIMARY KEY,
    total_messages    INTEGER NOT NULL DEFAULT 0,
    unique_users      INTEGER NOT NULL DEFAULT 0,
    new_users         INTEGER NOT NULL DEFAULT 0,
    schedule_queries  INTEGER NOT NULL DEFAULT 0,
    promotion_queries INTEGER NOT NULL DEFAULT 0,
    general_queries   INTEGER NOT NULL DEFAULT 0
)`

const createWordFrequencyTable = `
CREATE TABLE IF NOT EXISTS word_frequency (
    word       TEXT PRIMARY KEY,
    frequency  INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_users_active ON users(active)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at)`,
}

// CreateSchema creates all tables and indexes in one transaction. It is
// idempotent.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	tables := []struct {
		name string
		ddl  string
	}{
		{"users", createUsersTable},
		{"interactions", createInteractionsTable},
		{"daily_metrics", createDailyMetricsTable},
		{"word_frequency", createWordFrequencyTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}
	for _, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}
