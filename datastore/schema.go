package datastore

import (
	"context"
	"database/sql"
	"fmt"
)

// Statements are portable between PostgreSQL and SQLite. Timestamps are
// stored in UTC.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		username   TEXT NOT NULL,
		token_hash TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL REFERENCES users(id),
		title         TEXT NOT NULL,
		content       TEXT NOT NULL,
		artifact_path TEXT NOT NULL,
		age           INTEGER NOT NULL,
		created_at    TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS books_user_id_created_at_idx ON books (user_id, created_at)`,
}

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
