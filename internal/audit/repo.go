package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/redline/internal/models"
)

// Record is one mirrored log entry together with the document it produced.
type Record struct {
	Session string
	Seq     int
	Entry   models.LogEntry
	HTML    string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Session string        `json:"session"`
	Seq     int           `json:"seq"`
	Action  models.Action `json:"action"`
	Snippet string        `json:"snippet"`
}

// Append stores r under the next sequence number of its session and returns
// that number. The entry row and its FTS row are written in one transaction.
func (db *DB) Append(r Record) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("audit: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var seq int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), -1) + 1 FROM entries WHERE session = ?`, r.Session).Scan(&seq); err != nil {
		return 0, fmt.Errorf("audit: next seq: %w", err)
	}

	at := r.Entry.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO entries (session, seq, action, summary, html, edited_html, original_html, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Session, seq, string(r.Entry.Action), r.Entry.TextContent, r.HTML,
		nullable(r.Entry.EditedHTML), nullable(r.Entry.OriginalHTML), at.UTC())
	if err != nil {
		return 0, fmt.Errorf("audit: insert entry: %w", err)
	}

	if err := ftsInsert(tx, r.Session, seq, r.Entry); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("audit: commit: %w", err)
	}
	return seq, nil
}

// Entries returns every record of session in sequence order.
func (db *DB) Entries(session string) ([]Record, error) {
	rows, err := db.conn.Query(`
		SELECT seq, action, summary, html, edited_html, original_html, created_at
		FROM entries
		WHERE session = ?
		ORDER BY seq
	`, session)
	if err != nil {
		return nil, fmt.Errorf("audit: entries: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r := Record{Session: session}
		var action string
		var edited, original sql.NullString
		if err := rows.Scan(&r.Seq, &action, &r.Entry.TextContent, &r.HTML, &edited, &original, &r.Entry.Timestamp); err != nil {
			return nil, err
		}
		r.Entry.Action = models.Action(action)
		r.Entry.EditedHTML = fromNullable(edited)
		r.Entry.OriginalHTML = fromNullable(original)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Clear removes every record of session.
func (db *DB) Clear(session string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("audit: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsClear(tx, session)
	if _, err := tx.Exec(`DELETE FROM entries WHERE session = ?`, session); err != nil {
		return fmt.Errorf("audit: clear: %w", err)
	}
	return tx.Commit()
}

// Sessions returns every session id with at least one record.
func (db *DB) Sessions() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT session FROM entries ORDER BY session`)
	if err != nil {
		return nil, fmt.Errorf("audit: sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func fromNullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
