// Package workspace stores users and their boards in SQLite, with an
// optional Redis read cache in front.
package workspace

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/corkboard/internal/board"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id        TEXT PRIMARY KEY,
	email     TEXT NOT NULL UNIQUE,
	name      TEXT NOT NULL DEFAULT '',
	avatar    TEXT NOT NULL DEFAULT '',
	google_id TEXT NOT NULL DEFAULT '',
	theme     TEXT NOT NULL DEFAULT 'light'
);

CREATE TABLE IF NOT EXISTS workspaces (
	user_id      TEXT PRIMARY KEY,
	items        TEXT NOT NULL DEFAULT '[]',
	last_updated DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is what the HTTP layer needs from the datastore.
type Store interface {
	Login(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, u User) (User, error)
	GetWorkspace(ctx context.Context, userID string) (Record, error)
	SaveWorkspace(ctx context.Context, userID string, items []board.Item) (Record, error)
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// DB wraps a sql.DB with workspace operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("workspace: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("workspace: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("workspace: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
