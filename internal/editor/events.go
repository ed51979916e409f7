package editor

import "github.com/starford/redline/internal/models"

// EventKind names what changed.
type EventKind string

const (
	EventContent   EventKind = "content"
	EventSelection EventKind = "selection"
	EventProposal  EventKind = "proposal"
	EventFlags     EventKind = "flags"
	EventReset     EventKind = "reset"
)

// Event is the snapshot handed to subscribers after every mutation.
type Event struct {
	Kind       EventKind `json:"kind"`
	Content    string    `json:"content_html"`
	Cursor     int       `json:"cursor"`
	HistoryLen int       `json:"history_len"`
	// Entry is the log entry appended by this mutation, if any.
	Entry     *models.LogEntry `json:"entry,omitempty"`
	Selection *Selection       `json:"selection"`
	Proposal  *Proposal        `json:"proposal"`
	Locked    bool             `json:"locked"`
	Editable  bool             `json:"editable"`
}

// Subscribe registers fn to be called synchronously after each mutation.
// The returned func removes the subscription.
func (e *Editor) Subscribe(fn func(Event)) func() {
	e.nextSub++
	id := e.nextSub
	e.subs = append(e.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the current state as an Event of the given kind without
// notifying subscribers.
func (e *Editor) Snapshot(kind EventKind) Event {
	return Event{
		Kind:       kind,
		Content:    e.content,
		Cursor:     e.history.Cursor(),
		HistoryLen: e.history.Len(),
		Selection:  e.selection.clone(),
		Proposal:   e.proposal.clone(),
		Locked:     e.locked,
		Editable:   e.editable,
	}
}

func (e *Editor) emit(kind EventKind, entry *models.LogEntry) {
	if len(e.subs) == 0 {
		return
	}
	ev := e.Snapshot(kind)
	ev.Entry = entry
	for _, s := range append([]subscriber(nil), e.subs...) {
		s.fn(ev)
	}
}
