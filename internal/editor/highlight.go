package editor

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/redline/internal/markup"
	"github.com/starford/redline/internal/models"
)

// Resolution is the user's decision on the pending highlight. A nil
// EditedHTML or OriginalHTML counts as empty markup, so a cancel without
// OriginalHTML removes the highlighted text.
type Resolution struct {
	EditedHTML   *string
	OriginalHTML *string
	Apply        bool
}

// ResolveHighlight replaces the pending marker with an applied marker
// wrapping EditedHTML (Apply) or with OriginalHTML verbatim, commits the
// result and clears the selection. When several pending markers exist the
// first one in document order is resolved. It reports false, leaving every
// piece of state untouched, when the document has no pending marker.
func (e *Editor) ResolveHighlight(r Resolution) bool {
	tree, err := markup.Parse(e.content, e.conv)
	if err != nil {
		return false
	}
	markers := tree.Markers(e.conv.PendingClass)
	if len(markers) == 0 {
		return false
	}
	marker := markers[0]
	edited, original := deref(r.EditedHTML), deref(r.OriginalHTML)

	switch {
	case !r.Apply && original == "" && inEmptyBlock(tree, marker):
		repairEmptyBlock(tree, marker)
	case r.Apply:
		span := markup.Element(atom.Span, e.conv.AppliedClass)
		nodes, err := markup.Fragment(span, edited)
		if err != nil {
			return false
		}
		markup.SetInner(span, nodes...)
		markup.Replace(marker, span)
	default:
		nodes, err := markup.Fragment(marker.Parent, original)
		if err != nil {
			return false
		}
		markup.Replace(marker, nodes...)
	}
	tree.Reindex()

	out, err := tree.Render()
	if err != nil {
		return false
	}
	action := models.ActionCancelEdit
	if r.Apply {
		action = models.ActionApplyEdit
	}
	e.selection = nil
	e.commit(out, action, r.EditedHTML, r.OriginalHTML)
	return true
}

func inEmptyBlock(tree *markup.Tree, marker *html.Node) bool {
	bi := tree.Enclosing(marker)
	return bi >= 0 && tree.Blocks[bi].Role == markup.RoleEmpty && tree.Blocks[bi].Node != marker
}

// repairEmptyBlock handles a cancelled edit inside an empty placeholder: the
// marker is dropped and fresh placeholders are put on both sides so the
// paragraph spacing survives.
func repairEmptyBlock(tree *markup.Tree, marker *html.Node) {
	bi := tree.Enclosing(marker)
	block := tree.Blocks[bi].Node
	marker.Parent.RemoveChild(marker)
	tree.InsertBefore(bi, markup.ShallowClone(block))
	tree.InsertAfter(bi+1, markup.ShallowClone(block))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
