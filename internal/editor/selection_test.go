package editor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/redline/internal/editor"
)

const sampleDoc = `<div class="mw-heading mw-heading2"><h2>Intro</h2></div>` +
	`<p class="wiki-paragraph edit-paragraph">First paragraph.</p>` +
	`<p class="wiki-paragraph edit-paragraph empty-paragraph"></p>` +
	`<p class="wiki-paragraph edit-paragraph">Second <b>bold</b> paragraph.</p>` +
	`<div class="mw-heading mw-heading3"><h3>Detail</h3></div>` +
	`<p class="wiki-paragraph edit-paragraph">Third paragraph.</p>` +
	`<div class="mw-heading mw-heading2"><h2>Next</h2></div>` +
	`<p class="wiki-paragraph edit-paragraph">Fourth paragraph.</p>`

func loaded(t *testing.T, doc string, opts ...editor.Option) *editor.Editor {
	t.Helper()
	ed := newEditor(t, opts...)
	ed.SetContent(doc, "")
	return ed
}

func TestSelectText_NeighborWindow(t *testing.T) {
	ed := loaded(t, sampleDoc)
	require.True(t, ed.SelectText(ptr("Second"), nil))

	sel := ed.Selection()
	require.NotNil(t, sel)
	assert.Equal(t, "Second", sel.Text)
	assert.Equal(t, 2, sel.BlockIndex)
	require.NotNil(t, sel.Match)
	assert.Equal(t, editor.Match{Start: 0, End: 6}, *sel.Match)
	require.NotNil(t, sel.ContextWindow)
	assert.Equal(t, "First paragraph."+"Second <b>bold</b> paragraph."+"<h3>Detail</h3>", *sel.ContextWindow)
}

func TestSelectText_NeighborWindowAtEdge(t *testing.T) {
	ed := loaded(t, `<p class="wiki-paragraph">Only one.</p>`)
	require.True(t, ed.SelectText(ptr("one"), nil))
	sel := ed.Selection()
	require.NotNil(t, sel.ContextWindow)
	assert.Equal(t, "Only one.", *sel.ContextWindow)
}

func TestSelectText_HeadingWindow(t *testing.T) {
	ed := loaded(t, sampleDoc, editor.WithStrategy(editor.StrategyHeading))
	require.True(t, ed.SelectText(ptr("bold"), nil))

	sel := ed.Selection()
	require.NotNil(t, sel.ContextWindow)
	want := "<h2>Intro</h2>\n" +
		"First paragraph.\n" +
		"Second <b><target>bold</target></b> paragraph.\n" +
		"<h3>Detail</h3>\n" +
		"Third paragraph."
	assert.Equal(t, want, *sel.ContextWindow)
}

func TestSelectText_HeadingWindowStopsAtNextSection(t *testing.T) {
	ed := loaded(t, sampleDoc, editor.WithStrategy(editor.StrategyHeading))
	require.True(t, ed.SelectText(ptr("Fourth"), nil))
	sel := ed.Selection()
	require.NotNil(t, sel.ContextWindow)
	assert.Equal(t, "<h2>Next</h2>\n<target>Fourth</target> paragraph.", *sel.ContextWindow)
}

func TestSelectText_HeadingWindowEmptyTarget(t *testing.T) {
	ed := loaded(t, sampleDoc, editor.WithStrategy(editor.StrategyHeading))
	require.True(t, ed.SelectText(ptr(""), ptr(1)))

	sel := ed.Selection()
	require.NotNil(t, sel.ContextWindow)
	want := "<h2>Intro</h2>\n" +
		"First paragraph.\n" +
		"<target></target>\n" +
		"Second <b>bold</b> paragraph.\n" +
		"<h3>Detail</h3>\n" +
		"Third paragraph."
	assert.Equal(t, want, *sel.ContextWindow)
}

func TestSelectText_HeadingWindowWithoutHeading(t *testing.T) {
	ed := loaded(t, `<p class="wiki-paragraph">No sections here.</p>`, editor.WithStrategy(editor.StrategyHeading))
	require.True(t, ed.SelectText(ptr("sections"), nil))
	sel := ed.Selection()
	require.NotNil(t, sel)
	assert.Nil(t, sel.ContextWindow)
	assert.Equal(t, 0, sel.BlockIndex)
}

func TestSelectText_BlockIndexWins(t *testing.T) {
	ed := loaded(t, sampleDoc)
	require.True(t, ed.SelectText(ptr("First"), ptr(4)))

	sel := ed.Selection()
	assert.Equal(t, 4, sel.BlockIndex)
	assert.Nil(t, sel.Match, "text does not occur in the addressed block")
	require.NotNil(t, sel.ContextWindow)
	assert.Equal(t, "<h2>Next</h2>Fourth paragraph.", *sel.ContextWindow)
}

func TestSelectText_Unresolvable(t *testing.T) {
	ed := loaded(t, sampleDoc)
	require.True(t, ed.SelectText(ptr("Third"), nil))
	before := ed.Selection()

	assert.False(t, ed.SelectText(ptr("missing words"), nil))
	assert.False(t, ed.SelectText(ptr("Third"), ptr(9)))
	assert.False(t, ed.SelectText(ptr("Third"), ptr(-1)))
	assert.Equal(t, before, ed.Selection())
}

func TestSelectText_ClearIsIdempotent(t *testing.T) {
	ed := loaded(t, sampleDoc)
	require.True(t, ed.SelectText(ptr("Third"), nil))

	require.True(t, ed.SelectText(nil, nil))
	assert.Nil(t, ed.Selection())
	require.True(t, ed.SelectText(nil, nil))
	assert.Nil(t, ed.Selection())
}

func TestSelectText_BlankTextClears(t *testing.T) {
	for _, text := range []string{"", "   "} {
		ed := loaded(t, sampleDoc)
		require.True(t, ed.SelectText(ptr("Third"), nil))

		require.True(t, ed.SelectText(ptr(text), nil), "text %q", text)
		assert.Nil(t, ed.Selection(), "text %q", text)
		_, ok := ed.Propose("Inserted")
		assert.False(t, ok, "text %q", text)
		assert.NotContains(t, ed.Content(), "highlight-yellow")
	}
}

func TestSelectText_DoesNotTouchHistory(t *testing.T) {
	ed := loaded(t, sampleDoc)
	logs, hist := len(ed.Logs()), ed.HistoryLen()
	ed.SelectText(ptr("Third"), nil)
	ed.SelectText(nil, nil)
	assert.Len(t, ed.Logs(), logs)
	assert.Equal(t, hist, ed.HistoryLen())
}

func TestSelection_ReturnsCopy(t *testing.T) {
	ed := loaded(t, sampleDoc)
	require.True(t, ed.SelectText(ptr("Third"), nil))
	sel := ed.Selection()
	*sel.ContextWindow = "changed"
	sel.Match.Start = 99
	assert.NotEqual(t, "changed", *ed.Selection().ContextWindow)
	assert.Equal(t, 0, ed.Selection().Match.Start)
}
