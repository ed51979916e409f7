package editservice

import (
	"context"
	"fmt"

	"github.com/starford/redline/internal/apperr"
	"github.com/starford/redline/internal/editor"
)

// ReplayReport is the outcome of rebuilding a session from its audit trail.
type ReplayReport struct {
	ID          string `json:"id"`
	Steps       int    `json:"steps"`
	ContentHTML string `json:"content_html"`
	Cursor      int    `json:"cursor"`
	HistoryLen  int    `json:"history_len"`
	// MatchesLive reports whether the rebuilt document equals the live one.
	MatchesLive bool `json:"matches_live"`
}

// Replay rebuilds session id from the audit trail in a scratch editor and
// compares the result with the live document. The live session is not
// modified.
func (s *Service) Replay(ctx context.Context, id string) (ReplayReport, error) {
	if s.trail == nil {
		return ReplayReport{}, fmt.Errorf("replay: audit trail disabled: %w", apperr.ErrNotFound)
	}
	records, err := s.trail.Entries(id)
	if err != nil {
		return ReplayReport{}, err
	}
	if len(records) == 0 {
		return ReplayReport{}, fmt.Errorf("session %s: no audit records: %w", id, apperr.ErrNotFound)
	}
	steps := make([]editor.Step, len(records))
	for i, r := range records {
		steps[i] = editor.Step{
			Action:       r.Entry.Action,
			HTML:         r.HTML,
			EditedHTML:   r.Entry.EditedHTML,
			OriginalHTML: r.Entry.OriginalHTML,
		}
	}
	rebuilt := editor.Replay(steps, s.editorOptions()...)

	live, err := s.Get(ctx, id)
	if err != nil {
		return ReplayReport{}, err
	}
	return ReplayReport{
		ID:          id,
		Steps:       len(steps),
		ContentHTML: rebuilt.Content(),
		Cursor:      rebuilt.Cursor(),
		HistoryLen:  rebuilt.HistoryLen(),
		MatchesLive: rebuilt.Content() == live.ContentHTML,
	}, nil
}
