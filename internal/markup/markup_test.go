package markup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html/atom"

	"github.com/starford/redline/internal/markup"
)

const doc = `<div class="mw-heading mw-heading2"><h2>Intro</h2></div>` +
	`<p class="wiki-paragraph">One.</p>` +
	`<p class="wiki-paragraph empty-paragraph"></p>` +
	`<div class="mw-heading mw-heading3"><h3>Sub</h3></div>` +
	`<p class="wiki-paragraph">Two <b>bold</b>.</p>` +
	`<table><tbody><tr><td>cell</td></tr></tbody></table>`

func parse(t *testing.T, src string) *markup.Tree {
	t.Helper()
	tree, err := markup.Parse(src, markup.DefaultConventions())
	require.NoError(t, err)
	return tree
}

func TestParse_Roles(t *testing.T) {
	tree := parse(t, doc)
	var roles []markup.Role
	for _, b := range tree.Blocks {
		roles = append(roles, b.Role)
	}
	assert.Equal(t, []markup.Role{
		markup.RoleTopHeading, markup.RoleEditable, markup.RoleEmpty,
		markup.RoleHeading, markup.RoleEditable, markup.RoleOther,
	}, roles)
	assert.Equal(t, []int{1, 2, 4}, tree.Editable())
}

func TestRender_RoundTrip(t *testing.T) {
	out, err := parse(t, doc).Render()
	require.NoError(t, err)
	assert.Equal(t, doc, out)
}

func TestParse_CustomConventions(t *testing.T) {
	conv := markup.Conventions{EditableClass: "para", HeadingClass: "h", TopHeadingClass: "top"}
	tree, err := markup.Parse(`<div class="h top">A</div><p class="para">B</p><p class="wiki-paragraph">C</p>`, conv)
	require.NoError(t, err)
	require.Len(t, tree.Blocks, 3)
	assert.Equal(t, markup.RoleTopHeading, tree.Blocks[0].Role)
	assert.Equal(t, markup.RoleEditable, tree.Blocks[1].Role)
	assert.Equal(t, markup.RoleOther, tree.Blocks[2].Role)
}

func TestPrevNext(t *testing.T) {
	tree := parse(t, doc)
	assert.Equal(t, 1, tree.Prev(3, markup.EditableOrHeading), "placeholder is skipped")
	assert.Equal(t, 3, tree.Next(1, markup.EditableOrHeading))
	assert.Equal(t, 0, tree.Prev(4, markup.TopHeading))
	assert.Equal(t, -1, tree.Next(4, markup.EditableOrHeading))
	assert.Equal(t, -1, tree.Prev(0, markup.TopHeading))
	assert.Equal(t, 0, tree.Find(markup.NonEmpty))
}

func TestFind_SkipsBlankBlocks(t *testing.T) {
	tree := parse(t, `<p class="wiki-paragraph empty-paragraph"> </p><p class="wiki-paragraph">One.</p>`)
	assert.Equal(t, 1, tree.Find(markup.NonEmpty))
	assert.Equal(t, -1, parse(t, `<p class="wiki-paragraph"></p>`).Find(markup.NonEmpty))
}

func TestMarkersAndEnclosing(t *testing.T) {
	tree := parse(t, `<p class="wiki-paragraph">x <span class="highlight-yellow">y <span class="highlight-yellow">z</span></span></p>`)
	markers := tree.Markers("highlight-yellow")
	require.Len(t, markers, 2)
	assert.Equal(t, "y z", markup.TextContent(markers[0]))
	assert.Equal(t, 0, tree.Enclosing(markers[1]))
	assert.Equal(t, 0, tree.Enclosing(tree.Blocks[0].Node))
}

func TestInsertAndReplace(t *testing.T) {
	tree := parse(t, `<p class="wiki-paragraph">a</p>`)
	tree.InsertBefore(0, markup.Element(atom.Hr, ""))
	tree.InsertAfter(1, markup.ShallowClone(tree.Blocks[1].Node))
	require.Len(t, tree.Blocks, 3)

	nodes, err := markup.Fragment(tree.Blocks[1].Node, "b <i>c</i>")
	require.NoError(t, err)
	markup.SetInner(tree.Blocks[1].Node, nodes...)

	span := markup.Element(atom.Span, "highlight-green")
	markup.Replace(tree.Blocks[0].Node, span)
	tree.Reindex()

	out, err := tree.Render()
	require.NoError(t, err)
	assert.Equal(t, `<span class="highlight-green"></span><p class="wiki-paragraph">b <i>c</i></p><p class="wiki-paragraph"></p>`, out)
}

func TestHasClass(t *testing.T) {
	tree := parse(t, `<p class=" wiki-paragraph  edit-paragraph ">a</p>`)
	n := tree.Blocks[0].Node
	assert.True(t, markup.HasClass(n, "edit-paragraph"))
	assert.False(t, markup.HasClass(n, "paragraph"))
	assert.False(t, markup.HasClass(n, ""))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "One.\nTwo bold.", markup.Summary(doc, markup.DefaultConventions()))
	assert.Equal(t, "", markup.Summary("", markup.DefaultConventions()))
}

func TestParse_Malformed(t *testing.T) {
	tree := parse(t, `<p class="wiki-paragraph">open <b>never closed`)
	require.Len(t, tree.Blocks, 1)
	assert.Equal(t, "open never closed", tree.Blocks[0].Text())
}
