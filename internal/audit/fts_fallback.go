//go:build !sqlite_fts5

package audit

import (
	"database/sql"
	"fmt"

	"github.com/starford/redline/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over the entries table.
	return nil
}

func ftsInsert(_ *sql.Tx, _ string, _ int, _ models.LogEntry) error { return nil }

func ftsClear(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT session, seq, action, substr(summary, 1, 200)
		FROM entries
		WHERE summary LIKE ? OR edited_html LIKE ? OR original_html LIKE ?
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	`, like, like, like, limit)
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
