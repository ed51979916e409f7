package editor

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/redline/internal/models"
)

// ActionLog is the append-only ledger of state-changing operations.
type ActionLog struct {
	entries []models.LogEntry
}

// Append records a copy of entry and returns another.
func (l *ActionLog) Append(entry models.LogEntry) models.LogEntry {
	l.entries = append(l.entries, cloneEntry(entry))
	return cloneEntry(entry)
}

// Entries returns a deep copy of the log.
func (l *ActionLog) Entries() []models.LogEntry {
	if l.entries == nil {
		return nil
	}
	out := make([]models.LogEntry, len(l.entries))
	for i, e := range l.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

func cloneEntry(e models.LogEntry) models.LogEntry {
	e.EditedHTML = copyString(e.EditedHTML)
	e.OriginalHTML = copyString(e.OriginalHTML)
	return e
}

// Len returns the number of entries.
func (l *ActionLog) Len() int { return len(l.entries) }

// Clear drops every entry.
func (l *ActionLog) Clear() { l.entries = nil }

// Transcript renders entries as a plain-text conversation record suitable for
// handing back to the agent.
func Transcript(entries []models.LogEntry) string {
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%s] %s\n", e.Action, e.Timestamp.UTC().Format(time.RFC3339))
		if e.OriginalHTML != nil {
			fmt.Fprintf(&sb, "original: %s\n", *e.OriginalHTML)
		}
		if e.EditedHTML != nil {
			fmt.Fprintf(&sb, "edited: %s\n", *e.EditedHTML)
		}
		if e.TextContent != "" {
			sb.WriteString(e.TextContent)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
