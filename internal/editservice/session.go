package editservice

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/starford/redline/internal/apperr"
	"github.com/starford/redline/internal/editor"
	"github.com/starford/redline/internal/models"
)

// session is one cached editor plus the metadata of its last save.
type session struct {
	mu   sync.Mutex
	id   string
	ed   *editor.Editor
	meta models.SessionMetadata
	// deleted is set once the session has been removed; holders of a stale
	// pointer must not write it back.
	deleted bool
	// evicted is set when the cache drops the session. Holders retry through
	// the cache so only one editor per id is ever live.
	evicted atomic.Bool
}

func (s *session) view() View {
	return View{
		ID:          s.id,
		ContentHTML: s.ed.Content(),
		Cursor:      s.ed.Cursor(),
		HistoryLen:  s.ed.HistoryLen(),
		LogCount:    len(s.ed.Logs()),
		Selection:   s.ed.Selection(),
		Proposal:    s.ed.Proposal(),
		Locked:      s.ed.Locked(),
		Editable:    s.ed.Editable(),
		Checksum:    s.meta.Checksum,
		UpdatedAt:   s.meta.UpdatedAt,
	}
}

// writable refuses new selections and proposals while the session is locked
// or read-only.
func (s *session) writable() error {
	if s.ed.Locked() {
		return fmt.Errorf("session %s: %w", s.id, apperr.ErrLocked)
	}
	if !s.ed.Editable() {
		return fmt.Errorf("session %s: %w", s.id, apperr.ErrNotEditable)
	}
	return nil
}
