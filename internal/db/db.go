package db

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

// DriverName is the database/sql driver registered by glebarez/go-sqlite.
const DriverName = "sqlite"

const gamesSchema = `
CREATE TABLE IF NOT EXISTS games (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	difficulty TEXT NOT NULL,
	status TEXT NOT NULL,
	winner TEXT NOT NULL DEFAULT '',
	moves TEXT NOT NULL,
	human_score INTEGER NOT NULL DEFAULT 0,
	computer_score INTEGER NOT NULL DEFAULT 0,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_games_session ON games (session_id, finished_at DESC);`

// Connect opens the SQLite database at path. ":memory:" gives a private
// in-memory database.
func Connect(ctx context.Context, path string) (*sqlx.DB, error) {
	pool, err := sqlx.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	// SQLite serialises writers; one connection also keeps :memory: databases
	// shared across queries.
	pool.SetMaxOpenConns(1)

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to connect to database at %s: %w", path, err)
	}
	slog.InfoContext(ctx, "Connected to database", "db.path", path)
	return pool, nil
}

// InitializeSchema creates the history tables if they do not exist.
func InitializeSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, gamesSchema); err != nil {
		return fmt.Errorf("failed to create games table: %w", err)
	}
	slog.InfoContext(ctx, "DB schema verified.")
	return nil
}
