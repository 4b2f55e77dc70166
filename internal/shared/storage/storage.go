// Package storage opens the SQLite database and applies the schema.
package storage

import (
	"context"
	"database/sql"

	"github.com/samber/oops"
	_ "modernc.org/sqlite"
)

// Open opens (or creates) the SQLite database at path and applies the
// schema. The returned handle is shared by every repository.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, oops.With("path", path, "context", "failed to open database").Wrap(err)
	}

	// A single connection keeps the pragmas effective for every query and
	// makes ":memory:" databases behave: each pooled connection would
	// otherwise open its own empty in-memory database.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, oops.With("pragma", pragma).Wrap(err)
		}
	}

	if err := ApplySchema(ctx, db); err != nil {
		db.Close()
		return nil, oops.With("path", path, "context", "failed to apply schema").Wrap(err)
	}

	return db, nil
}

// ApplySchema creates all tables and indexes; it is idempotent.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
