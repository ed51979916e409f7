// Package editor implements the document-state engine: a bounded undo/redo
// history of document snapshots, an append-only action log, selection
// resolution against the block structure and the apply/cancel transition of
// the pending-highlight marker.
//
// An Editor is not safe for concurrent use. Every method runs to completion
// before returning, and callers that share an Editor across goroutines must
// serialize access themselves. The locked and editable flags are advisory:
// the Editor records them but never refuses an operation because of them.
package editor

import (
	"time"

	"github.com/starford/redline/internal/markup"
	"github.com/starford/redline/internal/models"
)

// Strategy selects how context windows are built around a selection.
type Strategy string

const (
	StrategyNeighbor Strategy = "neighbor"
	StrategyHeading  Strategy = "heading"
)

// DefaultMaxHistory bounds the snapshot history when no option is given.
const DefaultMaxHistory = 100

// Option configures an Editor.
type Option func(*Editor)

// WithConventions sets the markup class names.
func WithConventions(c markup.Conventions) Option {
	return func(e *Editor) { e.conv = c }
}

// WithStrategy sets the context-window strategy.
func WithStrategy(s Strategy) Option {
	return func(e *Editor) { e.strategy = s }
}

// WithMaxHistory bounds the snapshot history. n <= 0 disables the bound.
func WithMaxHistory(n int) Option {
	return func(e *Editor) { e.maxHistory = n }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// Editor owns one document session.
type Editor struct {
	conv       markup.Conventions
	strategy   Strategy
	maxHistory int
	now        func() time.Time

	content   string
	history   *History
	log       ActionLog
	selection *Selection
	proposal  *Proposal
	proposals int

	locked   bool
	editable bool

	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(Event)
}

// New creates an empty editor.
func New(opts ...Option) *Editor {
	e := &Editor{
		conv:       markup.DefaultConventions(),
		strategy:   StrategyNeighbor,
		maxHistory: DefaultMaxHistory,
		now:        time.Now,
		editable:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.history = NewHistory(e.maxHistory)
	return e
}

// Restore creates an editor from persisted state. History starts empty.
func Restore(state models.SessionState, opts ...Option) *Editor {
	e := New(opts...)
	e.content = state.ContentHTML
	for _, entry := range state.Logs {
		e.log.Append(entry)
	}
	return e
}

// State returns the persistable part of the session.
func (e *Editor) State() models.SessionState {
	return models.SessionState{ContentHTML: e.content, Logs: e.log.Entries()}
}

// Content returns the current document markup.
func (e *Editor) Content() string { return e.content }

// Cursor returns the active history index, or -1 when history is empty.
func (e *Editor) Cursor() int { return e.history.Cursor() }

// HistoryLen returns the number of snapshots.
func (e *Editor) HistoryLen() int { return e.history.Len() }

// Snapshots returns a copy of the history.
func (e *Editor) Snapshots() []models.Snapshot { return e.history.Snapshots() }

// Logs returns a copy of the action log.
func (e *Editor) Logs() []models.LogEntry { return e.log.Entries() }

// Conventions returns the markup class names in use.
func (e *Editor) Conventions() markup.Conventions { return e.conv }

// Selection returns a copy of the current selection, or nil.
func (e *Editor) Selection() *Selection { return e.selection.clone() }

// Proposal returns a copy of the most recent proposal, or nil.
func (e *Editor) Proposal() *Proposal { return e.proposal.clone() }

// Locked reports the advisory lock flag.
func (e *Editor) Locked() bool { return e.locked }

// Editable reports the advisory editability flag.
func (e *Editor) Editable() bool { return e.editable }

// SetLocked updates the advisory lock flag.
func (e *Editor) SetLocked(locked bool) {
	if e.locked == locked {
		return
	}
	e.locked = locked
	e.emit(EventFlags, nil)
}

// SetEditable updates the advisory editability flag.
func (e *Editor) SetEditable(editable bool) {
	if e.editable == editable {
		return
	}
	e.editable = editable
	e.emit(EventFlags, nil)
}

// SetContent commits html as a new snapshot and logs it under action
// (SET_CONTENT when empty). The markup is not validated.
func (e *Editor) SetContent(html string, action models.Action) {
	if action == "" {
		action = models.ActionSetContent
	}
	e.commit(html, action, nil, nil)
}

// Undo steps the history back. It reports false at the start of history.
func (e *Editor) Undo() bool {
	snap, ok := e.history.Back()
	if !ok {
		return false
	}
	e.content = snap.HTML
	entry := e.record(models.ActionUndo, snap.HTML, nil, nil, e.now())
	e.emit(EventContent, &entry)
	return true
}

// Redo steps the history forward. It reports false at the tail.
func (e *Editor) Redo() bool {
	snap, ok := e.history.Forward()
	if !ok {
		return false
	}
	e.content = snap.HTML
	entry := e.record(models.ActionRedo, snap.HTML, nil, nil, e.now())
	e.emit(EventContent, &entry)
	return true
}

// ClearLogs resets the whole session: log, history, content, selection and
// proposal. The lock guarding a pending proposal is released with it.
func (e *Editor) ClearLogs() {
	e.log.Clear()
	e.history.Reset()
	e.content = ""
	e.selection = nil
	e.proposal = nil
	e.locked = false
	e.emit(EventReset, nil)
}

func (e *Editor) commit(html string, action models.Action, edited, original *string) {
	now := e.now()
	e.history.Push(html, now)
	e.content = html
	entry := e.record(action, html, edited, original, now)
	e.emit(EventContent, &entry)
}

func (e *Editor) record(action models.Action, html string, edited, original *string, at time.Time) models.LogEntry {
	return e.log.Append(models.LogEntry{
		TextContent:  markup.Summary(html, e.conv),
		Action:       action,
		Timestamp:    at,
		EditedHTML:   copyString(edited),
		OriginalHTML: copyString(original),
	})
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
