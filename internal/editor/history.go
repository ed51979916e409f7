package editor

import (
	"time"

	"github.com/starford/redline/internal/models"
)

// History is a bounded linear list of document snapshots with a cursor.
// An empty history has cursor -1.
type History struct {
	max    int
	snaps  []models.Snapshot
	cursor int
}

// NewHistory creates a history holding at most max snapshots. max <= 0
// means unbounded.
func NewHistory(max int) *History {
	return &History{max: max, cursor: -1}
}

// Push discards every snapshot after the cursor, appends html and moves the
// cursor to it. The oldest snapshots are evicted once the bound is exceeded.
func (h *History) Push(html string, at time.Time) {
	h.snaps = append(h.snaps[:h.cursor+1], models.Snapshot{HTML: html, Timestamp: at})
	if h.max > 0 && len(h.snaps) > h.max {
		h.snaps = append([]models.Snapshot(nil), h.snaps[len(h.snaps)-h.max:]...)
	}
	h.cursor = len(h.snaps) - 1
}

// Back moves the cursor one step towards the start.
func (h *History) Back() (models.Snapshot, bool) {
	if h.cursor <= 0 {
		return models.Snapshot{}, false
	}
	h.cursor--
	return h.snaps[h.cursor], true
}

// Forward moves the cursor one step towards the tail.
func (h *History) Forward() (models.Snapshot, bool) {
	if h.cursor >= len(h.snaps)-1 {
		return models.Snapshot{}, false
	}
	h.cursor++
	return h.snaps[h.cursor], true
}

// Current returns the snapshot under the cursor.
func (h *History) Current() (models.Snapshot, bool) {
	if h.cursor < 0 {
		return models.Snapshot{}, false
	}
	return h.snaps[h.cursor], true
}

// Len returns the number of snapshots.
func (h *History) Len() int { return len(h.snaps) }

// Cursor returns the active index, or -1 when empty.
func (h *History) Cursor() int { return h.cursor }

// Snapshots returns a copy of every snapshot.
func (h *History) Snapshots() []models.Snapshot {
	return append([]models.Snapshot(nil), h.snaps...)
}

// Reset empties the history.
func (h *History) Reset() {
	h.snaps = nil
	h.cursor = -1
}
