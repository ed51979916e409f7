package editor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/redline/internal/editor"
	"github.com/starford/redline/internal/models"
)

const highlightedSecond = `<p class="wiki-paragraph edit-paragraph"><span class="highlight-yellow">Second</span> <b>bold</b> paragraph.</p>`

func TestPropose_InjectsPendingMarker(t *testing.T) {
	ed := loaded(t, sampleDoc)
	require.True(t, ed.SelectText(ptr("Second"), nil))

	p, ok := ed.Propose("Another")
	require.True(t, ok)
	assert.Equal(t, 1, p.ID)
	assert.Equal(t, "Second", p.OriginalHTML)
	assert.Equal(t, "Another", p.EditedHTML)
	assert.Equal(t, editor.StatusPending, p.Status)
	assert.Contains(t, ed.Content(), highlightedSecond)
	assert.Equal(t, []models.Action{models.ActionSetContent, models.ActionHighlight}, actions(ed.Logs()))
}

func TestPropose_RequiresSelection(t *testing.T) {
	ed := loaded(t, sampleDoc)
	_, ok := ed.Propose("Another")
	assert.False(t, ok)
	assert.Nil(t, ed.Proposal())
}

func TestPropose_StaleSelection(t *testing.T) {
	ed := loaded(t, sampleDoc)
	require.True(t, ed.SelectText(ptr("Second"), nil))
	ed.SetContent(`<p class="wiki-paragraph">Rewritten.</p>`, "")
	_, ok := ed.Propose("Another")
	assert.False(t, ok)
}

func TestDecide_Apply(t *testing.T) {
	ed := loaded(t, sampleDoc)
	require.True(t, ed.SelectText(ptr("Second"), nil))
	_, ok := ed.Propose("Another")
	require.True(t, ok)

	p, ok := ed.Decide(true)
	require.True(t, ok)
	assert.Equal(t, editor.StatusApplied, p.Status)
	assert.Contains(t, ed.Content(), `<span class="highlight-green">Another</span> <b>bold</b> paragraph.`)
	assert.Nil(t, ed.Selection())
	assert.Equal(t, []models.Action{
		models.ActionSetContent, models.ActionHighlight, models.ActionApplyEdit,
	}, actions(ed.Logs()))

	_, ok = ed.Decide(false)
	assert.False(t, ok, "proposal already resolved")

	require.True(t, ed.Undo())
	assert.Contains(t, ed.Content(), highlightedSecond)
}

func TestDecide_CancelRestoresOriginal(t *testing.T) {
	ed := loaded(t, sampleDoc)
	require.True(t, ed.SelectText(ptr("Second"), nil))
	_, ok := ed.Propose("Another")
	require.True(t, ok)

	p, ok := ed.Decide(false)
	require.True(t, ok)
	assert.Equal(t, editor.StatusCancelled, p.Status)
	assert.Equal(t, sampleDoc, ed.Content())
}

func TestDefer_KeepsMarkerForNextProposal(t *testing.T) {
	ed := loaded(t, sampleDoc)
	require.True(t, ed.SelectText(ptr("Second"), nil))
	_, ok := ed.Propose("Another")
	require.True(t, ok)
	content, hist := ed.Content(), ed.HistoryLen()

	p, ok := ed.Defer()
	require.True(t, ok)
	assert.Equal(t, editor.StatusDeferred, p.Status)
	assert.True(t, p.Status.Terminal())
	assert.Equal(t, content, ed.Content())
	assert.NotNil(t, ed.Selection())

	_, ok = ed.Decide(true)
	assert.False(t, ok)

	p, ok = ed.Propose("Yet another")
	require.True(t, ok)
	assert.Equal(t, 2, p.ID)
	assert.Equal(t, "Second", p.OriginalHTML)
	assert.Equal(t, hist, ed.HistoryLen(), "existing marker is reused")

	_, ok = ed.Decide(true)
	require.True(t, ok)
	assert.Contains(t, ed.Content(), `<span class="highlight-green">Yet another</span>`)
}

func TestPropose_EmptyParagraphThenCancel(t *testing.T) {
	ed := loaded(t, sampleDoc)
	require.True(t, ed.SelectText(ptr(""), ptr(1)))
	_, ok := ed.Propose("Inserted text.")
	require.True(t, ok)
	assert.Contains(t, ed.Content(), `<p class="wiki-paragraph edit-paragraph empty-paragraph"><span class="highlight-yellow"></span></p>`)

	_, ok = ed.Decide(false)
	require.True(t, ok)
	placeholder := `<p class="wiki-paragraph edit-paragraph empty-paragraph"></p>`
	assert.Contains(t, ed.Content(), `First paragraph.</p>`+placeholder+placeholder+placeholder+`<p class="wiki-paragraph edit-paragraph">Second`)
}

func TestReplay_Reproduces(t *testing.T) {
	ed := loaded(t, sampleDoc)
	var steps []editor.Step
	ed.Subscribe(func(ev editor.Event) {
		if ev.Entry == nil {
			return
		}
		steps = append(steps, editor.Step{
			Action:       ev.Entry.Action,
			HTML:         ev.Content,
			EditedHTML:   ev.Entry.EditedHTML,
			OriginalHTML: ev.Entry.OriginalHTML,
		})
	})
	steps = append(steps, editor.Step{Action: models.ActionSetContent, HTML: sampleDoc})

	require.True(t, ed.SelectText(ptr("Third"), nil))
	_, ok := ed.Propose("Changed")
	require.True(t, ok)
	_, ok = ed.Decide(true)
	require.True(t, ok)
	ed.Undo()
	ed.Undo()
	ed.Redo()

	for range 2 {
		got := editor.Replay(steps)
		assert.Equal(t, ed.Content(), got.Content())
		assert.Equal(t, ed.Cursor(), got.Cursor())
		assert.Equal(t, ed.HistoryLen(), got.HistoryLen())
		assert.Equal(t, actions(ed.Logs()), actions(got.Logs()))
	}
}
