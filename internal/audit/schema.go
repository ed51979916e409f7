// Package audit mirrors session action logs into SQLite, with optional FTS5
// full-text search over entry summaries and edits.
package audit

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session       TEXT NOT NULL,
	seq           INTEGER NOT NULL,
	action        TEXT NOT NULL,
	summary       TEXT NOT NULL DEFAULT '',
	html          TEXT NOT NULL DEFAULT '',
	edited_html   TEXT,
	original_html TEXT,
	created_at    DATETIME NOT NULL,
	UNIQUE(session, seq)
);

CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session, seq);
`

// DB wraps a sql.DB with audit-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("audit: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
