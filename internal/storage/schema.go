package storage

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []struct {
	name  string
	query string
}{
	{"users", `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		real_name TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);`},
	{"quotes", `
	CREATE TABLE IF NOT EXISTS quotes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		added_by TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);`},
	{"emoji", `
	CREATE TABLE IF NOT EXISTS emoji (
		name TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		added_by TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);`},
	{"reaction_counts", `
	CREATE TABLE IF NOT EXISTS reaction_counts (
		reaction TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_reaction_counts_count ON reaction_counts(count DESC);`},
	{"scores", `
	CREATE TABLE IF NOT EXISTS scores (
		user_id TEXT PRIMARY KEY,
		score INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scores_score ON scores(score DESC);`},
	{"settings", `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_by TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);`},
	{"approved_users", `
	CREATE TABLE IF NOT EXISTS approved_users (
		user_id TEXT PRIMARY KEY,
		approved_by TEXT NOT NULL DEFAULT '',
		approved_at INTEGER NOT NULL
	);`},
}

// InitSchema creates all tables and indexes if they do not exist.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, s := range schemaStatements {
		if _, err := db.ExecContext(ctx, s.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", s.name, err)
		}
	}
	return nil
}

// entityKeys maps tables reachable through Session.GetEntity to their key
// column. Table names never come from user input.
var entityKeys = map[string]string{
	"users":           "user_id",
	"emoji":           "name",
	"reaction_counts": "reaction",
	"scores":          "user_id",
	"settings":        "key",
	"approved_users":  "user_id",
}
