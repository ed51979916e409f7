package editor

import "github.com/starford/redline/internal/models"

// Step is one recorded mutation together with the document it produced.
type Step struct {
	Action       models.Action
	HTML         string
	EditedHTML   *string
	OriginalHTML *string
}

// Replay rebuilds an editor by re-issuing steps in order. Undo and redo steps
// move the cursor; every other step commits its HTML as a snapshot. Replaying
// the same steps always yields the same content, history and log actions.
func Replay(steps []Step, opts ...Option) *Editor {
	e := New(opts...)
	for _, s := range steps {
		switch s.Action {
		case models.ActionUndo:
			e.Undo()
		case models.ActionRedo:
			e.Redo()
		default:
			e.commit(s.HTML, s.Action, s.EditedHTML, s.OriginalHTML)
		}
	}
	return e
}
