package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/redline/internal/checksum"
	"github.com/starford/redline/internal/editor"
	"github.com/starford/redline/internal/editservice"
	"github.com/starford/redline/internal/models"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *editservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *editservice.Service) *Handler {
	return &Handler{svc: svc}
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

func writeView(w http.ResponseWriter, status int, v editservice.View) {
	if etag := checksum.ETag(v.Checksum); etag != "" {
		w.Header().Set("ETag", etag)
	}
	writeJSON(w, status, v)
}

// ListSessions handles GET /api/sessions.
//
//	@Summary		List stored sessions
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{object}	SessionListResponse
//	@Security		BearerAuth
//	@Router			/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, "list sessions", "", err)
		return
	}
	if items == nil {
		items = []models.SessionMetadata{}
	}
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: items})
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get the current state of a session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get session", id, err)
		return
	}
	writeView(w, http.StatusOK, v)
}

// DeleteSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Delete a session and its audit trail
//	@Tags			sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204	"Session deleted"
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, "delete session", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetContent handles PUT /api/sessions/{id}/content.
//
//	@Summary		Replace the document, creating the session if needed
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Session id"
//	@Param			If-Match	header		string				false	"Checksum for optimistic concurrency"
//	@Param			body		body		SetContentRequest	true	"New document"
//	@Success		200			{object}	SessionView
//	@Failure		409			{object}	errResponse
//	@Failure		423			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/content [put]
func (h *Handler) SetContent(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	var req SetContentRequest
	if !decode(w, r, &req) {
		return
	}
	ifMatch := checksum.FromIfMatch(r.Header.Get("If-Match"))

	v, err := h.svc.SetContent(r.Context(), id, req.ContentHTML, ifMatch)
	if err != nil {
		writeError(w, "set content", id, err)
		return
	}
	writeView(w, http.StatusOK, v)
}

// Select handles POST /api/sessions/{id}/selection.
//
//	@Summary		Resolve a selection and build its context window
//	@Tags			selection
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		SelectRequest	true	"Selected text"
//	@Success		200		{object}	SessionView
//	@Failure		404		{object}	errResponse
//	@Failure		423		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/selection [post]
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	var req SelectRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("text is required"))
		return
	}
	v, err := h.svc.Select(r.Context(), id, req.Text, req.BlockIndex)
	if err != nil {
		writeError(w, "select", id, err)
		return
	}
	writeView(w, http.StatusOK, v)
}

// ClearSelection handles DELETE /api/sessions/{id}/selection.
func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	v, err := h.svc.Select(r.Context(), id, nil, nil)
	if err != nil {
		writeError(w, "clear selection", id, err)
		return
	}
	writeView(w, http.StatusOK, v)
}

// Propose handles POST /api/sessions/{id}/proposal.
//
//	@Summary		Attach an edit to the current selection
//	@Tags			proposals
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		ProposeRequest	true	"Replacement markup"
//	@Success		201		{object}	ProposalResponse
//	@Failure		409		{object}	errResponse
//	@Failure		423		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/proposal [post]
func (h *Handler) Propose(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	var req ProposeRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.Propose(r.Context(), id, req.EditedHTML)
	if err != nil {
		writeError(w, "propose", id, err)
		return
	}
	h.writeProposal(w, r, http.StatusCreated, p)
}

// ApplyProposal handles POST /api/sessions/{id}/proposal/apply.
func (h *Handler) ApplyProposal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// CancelProposal handles POST /api/sessions/{id}/proposal/cancel.
func (h *Handler) CancelProposal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, apply bool) {
	id := sessionID(r)
	p, err := h.svc.Decide(r.Context(), id, apply)
	if err != nil {
		writeError(w, "decide", id, err)
		return
	}
	h.writeProposal(w, r, http.StatusOK, p)
}

// DeferProposal handles POST /api/sessions/{id}/proposal/defer.
func (h *Handler) DeferProposal(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	p, err := h.svc.Defer(r.Context(), id)
	if err != nil {
		writeError(w, "defer", id, err)
		return
	}
	h.writeProposal(w, r, http.StatusOK, p)
}

func (h *Handler) writeProposal(w http.ResponseWriter, r *http.Request, status int, p editor.Proposal) {
	id := sessionID(r)
	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get session", id, err)
		return
	}
	writeJSON(w, status, ProposalResponse{Proposal: p, Session: v})
}

// Resolve handles POST /api/sessions/{id}/resolve.
//
//	@Summary		Apply or cancel the pending highlight
//	@Tags			proposals
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		ResolveRequest	true	"Resolution"
//	@Success		200		{object}	SessionView
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/resolve [post]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	var req ResolveRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Apply && req.EditedHTML == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("edited_html is required to apply"))
		return
	}
	if !req.Apply && req.OriginalHTML == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("original_html is required to cancel"))
		return
	}
	v, err := h.svc.Resolve(r.Context(), id, editor.Resolution{
		EditedHTML:   req.EditedHTML,
		OriginalHTML: req.OriginalHTML,
		Apply:        req.Apply,
	})
	if err != nil {
		writeError(w, "resolve", id, err)
		return
	}
	writeView(w, http.StatusOK, v)
}

// Undo handles POST /api/sessions/{id}/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	v, moved, err := h.svc.Undo(r.Context(), id)
	if err != nil {
		writeError(w, "undo", id, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryMoveResponse{Moved: moved, Session: v})
}

// Redo handles POST /api/sessions/{id}/redo.
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	v, moved, err := h.svc.Redo(r.Context(), id)
	if err != nil {
		writeError(w, "redo", id, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryMoveResponse{Moved: moved, Session: v})
}

// Logs handles GET /api/sessions/{id}/logs.
//
//	@Summary		Get the action log of a session
//	@Tags			logs
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	LogsResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/logs [get]
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	logs, err := h.svc.Logs(r.Context(), id)
	if err != nil {
		writeError(w, "logs", id, err)
		return
	}
	if logs == nil {
		logs = []models.LogEntry{}
	}
	writeJSON(w, http.StatusOK, LogsResponse{Logs: logs})
}

// ClearLogs handles DELETE /api/sessions/{id}/logs and resets the session.
func (h *Handler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	v, err := h.svc.ClearLogs(r.Context(), id)
	if err != nil {
		writeError(w, "clear logs", id, err)
		return
	}
	writeView(w, http.StatusOK, v)
}

// Transcript handles GET /api/sessions/{id}/transcript.
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	out, err := h.svc.Transcript(r.Context(), id)
	if err != nil {
		writeError(w, "transcript", id, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

// Replay handles GET /api/sessions/{id}/replay.
func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	report, err := h.svc.Replay(r.Context(), id)
	if err != nil {
		writeError(w, "replay", id, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// SetFlags handles PUT /api/sessions/{id}/flags.
func (h *Handler) SetFlags(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	var req FlagsRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.svc.SetFlags(r.Context(), id, req.Locked, req.Editable)
	if err != nil {
		writeError(w, "set flags", id, err)
		return
	}
	writeView(w, http.StatusOK, v)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across action logs
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", "", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: toSearchResults(results)})
}
