//go:build sqlite_fts5

package audit

import (
	"database/sql"
	"fmt"

	"github.com/starford/redline/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			session UNINDEXED,
			seq UNINDEXED,
			action UNINDEXED,
			summary,
			edits,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, session string, seq int, e models.LogEntry) error {
	edits := deref(e.OriginalHTML) + " " + deref(e.EditedHTML)
	_, err := tx.Exec(`INSERT INTO entries_fts (session, seq, action, summary, edits) VALUES (?, ?, ?, ?, ?)`,
		session, seq, string(e.Action), e.TextContent, edits)
	if err != nil {
		return fmt.Errorf("audit: insert fts: %w", err)
	}
	return nil
}

func ftsClear(tx *sql.Tx, session string) {
	_, _ = tx.Exec(`DELETE FROM entries_fts WHERE session = ?`, session)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Search performs an FTS5 full-text search and returns matching entries with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT session,
		       seq,
		       action,
		       snippet(entries_fts, 3, '<b>', '</b>', '...', 32)
		FROM entries_fts
		WHERE entries_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var action string
		if err := rows.Scan(&r.Session, &r.Seq, &action, &r.Snippet); err != nil {
			return nil, err
		}
		r.Action = models.Action(action)
		out = append(out, r)
	}
	return out, rows.Err()
}
