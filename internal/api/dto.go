package api

import (
	"github.com/starford/redline/internal/audit"
	"github.com/starford/redline/internal/editor"
	"github.com/starford/redline/internal/editservice"
	"github.com/starford/redline/internal/models"
)

// SetContentRequest is the request body for replacing a document.
type SetContentRequest struct {
	ContentHTML string `json:"content_html" example:"<p class=\"wiki-paragraph\">Hello</p>"`
}

// SelectRequest is the request body for resolving a selection.
type SelectRequest struct {
	Text       *string `json:"text" example:"Hello" validate:"required"`
	BlockIndex *int    `json:"block_index,omitempty" example:"0"`
}

// ProposeRequest is the request body for attaching an edit to the selection.
type ProposeRequest struct {
	EditedHTML string `json:"edited_html" example:"Hi" validate:"required"`
}

// ResolveRequest is the request body for resolving the pending highlight directly.
type ResolveRequest struct {
	EditedHTML   *string `json:"edited_html,omitempty" example:"Hi"`
	OriginalHTML *string `json:"original_html,omitempty" example:"Hello"`
	Apply        bool    `json:"apply"`
}

// FlagsRequest is the request body for the advisory session flags.
type FlagsRequest struct {
	Locked   *bool `json:"locked,omitempty"`
	Editable *bool `json:"editable,omitempty"`
}

// SessionView is the session response type (aliased from the domain layer).
type SessionView = editservice.View

// ProposalResponse wraps a proposal with the session it belongs to.
type ProposalResponse struct {
	Proposal editor.Proposal  `json:"proposal"`
	Session  editservice.View `json:"session"`
}

// HistoryMoveResponse is returned by undo and redo.
type HistoryMoveResponse struct {
	Moved   bool             `json:"moved"`
	Session editservice.View `json:"session"`
}

// SessionListResponse wraps session listings.
type SessionListResponse struct {
	Sessions []models.SessionMetadata `json:"sessions" validate:"required"`
}

// LogsResponse wraps the action log.
type LogsResponse struct {
	Logs []models.LogEntry `json:"logs" validate:"required"`
}

// SearchResult is a single audit hit in the API response.
type SearchResult struct {
	Session string        `json:"session" example:"draft-1" validate:"required"`
	Seq     int           `json:"seq" example:"3" validate:"required"`
	Action  models.Action `json:"action" example:"APPLY_EDIT" validate:"required"`
	Snippet string        `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

func toSearchResults(in []audit.SearchResult) []SearchResult {
	out := make([]SearchResult, len(in))
	for i, r := range in {
		out[i] = SearchResult{Session: r.Session, Seq: r.Seq, Action: r.Action, Snippet: r.Snippet}
	}
	return out
}
