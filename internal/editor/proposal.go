package editor

import (
	"html"
	"strings"
	"time"

	"github.com/starford/redline/internal/markup"
	"github.com/starford/redline/internal/models"
)

// Status is the lifecycle state of one proposal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApplied   Status = "applied"
	StatusCancelled Status = "cancelled"
	StatusDeferred  Status = "deferred"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusApplied || s == StatusCancelled || s == StatusDeferred
}

// Proposal is an agent-suggested replacement for the pending highlight.
type Proposal struct {
	ID           int       `json:"id"`
	OriginalHTML string    `json:"original_html"`
	EditedHTML   string    `json:"edited_html"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p *Proposal) clone() *Proposal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Propose records editedHTML as the replacement for the current selection.
// If the document has no pending marker yet, the selection's match is
// wrapped in one and committed as a HIGHLIGHT snapshot; a marker left behind
// by a deferred proposal is reused. It reports false when there is no
// selection or the selection no longer matches the document.
func (e *Editor) Propose(editedHTML string) (Proposal, bool) {
	if e.selection == nil {
		return Proposal{}, false
	}
	original, ok := e.ensurePending()
	if !ok {
		return Proposal{}, false
	}
	e.proposals++
	e.proposal = &Proposal{
		ID:           e.proposals,
		OriginalHTML: original,
		EditedHTML:   editedHTML,
		Status:       StatusPending,
		CreatedAt:    e.now(),
	}
	e.emit(EventProposal, nil)
	return *e.proposal, true
}

// Decide applies or cancels the pending proposal.
func (e *Editor) Decide(apply bool) (Proposal, bool) {
	p := e.proposal
	if p == nil || p.Status != StatusPending {
		return Proposal{}, false
	}
	edited, original := p.EditedHTML, p.OriginalHTML
	if !e.ResolveHighlight(Resolution{EditedHTML: &edited, OriginalHTML: &original, Apply: apply}) {
		return Proposal{}, false
	}
	p.Status = StatusCancelled
	if apply {
		p.Status = StatusApplied
	}
	e.emit(EventProposal, nil)
	return *p, true
}

// Defer ends the pending proposal without touching the document. The pending
// marker stays in place for the next proposal.
func (e *Editor) Defer() (Proposal, bool) {
	p := e.proposal
	if p == nil || p.Status != StatusPending {
		return Proposal{}, false
	}
	p.Status = StatusDeferred
	e.emit(EventProposal, nil)
	return *p, true
}

// ensurePending returns the markup covered by the pending marker, injecting
// the marker around the selection first when the document has none.
func (e *Editor) ensurePending() (string, bool) {
	tree, err := markup.Parse(e.content, e.conv)
	if err != nil {
		return "", false
	}
	if markers := tree.Markers(e.conv.PendingClass); len(markers) > 0 {
		return markup.InnerHTML(markers[0]), true
	}

	sel := e.selection
	editable := tree.Editable()
	if sel.Match == nil || sel.BlockIndex >= len(editable) {
		return "", false
	}
	block := tree.Blocks[editable[sel.BlockIndex]].Node
	inner := markup.InnerHTML(block)
	m := *sel.Match
	if m.End > len(inner) || inner[m.Start:m.End] != strings.TrimSpace(sel.Text) {
		return "", false
	}
	selected := inner[m.Start:m.End]
	marked := inner[:m.Start] +
		`<span class="` + html.EscapeString(e.conv.PendingClass) + `">` + selected + `</span>` +
		inner[m.End:]
	nodes, err := markup.Fragment(block, marked)
	if err != nil {
		return "", false
	}
	markup.SetInner(block, nodes...)
	out, err := tree.Render()
	if err != nil {
		return "", false
	}
	e.commit(out, models.ActionHighlight, nil, nil)
	return selected, true
}
