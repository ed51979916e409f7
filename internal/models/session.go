// Package models defines the domain types shared by the editor, storage and
// audit layers.
package models

import "time"

// Action labels a state-changing operation in the action log.
type Action string

const (
	ActionSetContent Action = "SET_CONTENT"
	ActionApplyEdit  Action = "APPLY_EDIT"
	ActionCancelEdit Action = "CANCEL_EDIT"
	ActionUndo       Action = "UNDO"
	ActionRedo       Action = "REDO"

	// ActionHighlight is recorded when a pending marker is injected around a
	// selection. ActionImport is recorded for documents picked up by the
	// import watcher. Both are SetContent labels.
	ActionHighlight Action = "HIGHLIGHT"
	ActionImport    Action = "IMPORT"
)

// LogEntry is one immutable action-log record.
type LogEntry struct {
	TextContent  string    `json:"text_content"`
	Action       Action    `json:"action"`
	Timestamp    time.Time `json:"timestamp"`
	EditedHTML   *string   `json:"edited_html,omitempty"`
	OriginalHTML *string   `json:"original_html,omitempty"`
}

// Snapshot is one recorded state of the document.
type Snapshot struct {
	HTML      string    `json:"html"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionState is the persisted form of a session. History and cursor are
// not persisted and start empty after a reload.
type SessionState struct {
	ContentHTML string     `json:"content_html"`
	Logs        []LogEntry `json:"logs"`
}

// SessionMetadata is a lightweight representation returned by list operations.
type SessionMetadata struct {
	ID        string    `json:"id"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
