package markup

import (
	"strings"

	"golang.org/x/net/html"
)

// Predicate selects blocks during traversal.
type Predicate func(*Block) bool

// Editable returns the indexes (into Blocks) of editable blocks, in order.
func (t *Tree) Editable() []int {
	var out []int
	for i, b := range t.Blocks {
		if b.IsEditable() {
			out = append(out, i)
		}
	}
	return out
}

// Prev returns the index of the nearest block before i matching pred, or -1.
func (t *Tree) Prev(i int, pred Predicate) int {
	for j := i - 1; j >= 0; j-- {
		if pred(t.Blocks[j]) {
			return j
		}
	}
	return -1
}

// Next returns the index of the nearest block after i matching pred, or -1.
func (t *Tree) Next(i int, pred Predicate) int {
	for j := i + 1; j < len(t.Blocks); j++ {
		if pred(t.Blocks[j]) {
			return j
		}
	}
	return -1
}

// Find returns the index of the first block matching pred, or -1.
func (t *Tree) Find(pred Predicate) int {
	return t.Next(-1, pred)
}

// Markers returns every element carrying class, in document order.
func (t *Tree) Markers(class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if HasClass(n, class) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(t.root)
	return out
}

// Enclosing returns the index of the block containing n, or -1 when n is
// not inside any block.
func (t *Tree) Enclosing(n *html.Node) int {
	for n != nil && n.Parent != t.root {
		n = n.Parent
	}
	if n == nil {
		return -1
	}
	for i, b := range t.Blocks {
		if b.Node == n {
			return i
		}
	}
	return -1
}

// InsertBefore places a detached node before block i and reindexes.
func (t *Tree) InsertBefore(i int, n *html.Node) {
	t.root.InsertBefore(n, t.Blocks[i].Node)
	t.Reindex()
}

// InsertAfter places a detached node after block i and reindexes.
func (t *Tree) InsertAfter(i int, n *html.Node) {
	t.root.InsertBefore(n, t.Blocks[i].Node.NextSibling)
	t.Reindex()
}

// NonEmpty matches blocks whose inner markup is not blank.
func NonEmpty(b *Block) bool {
	return strings.TrimSpace(b.InnerHTML()) != ""
}

// EditableOrHeading matches non-placeholder editable paragraphs and headings.
func EditableOrHeading(b *Block) bool {
	return b.Role == RoleEditable || b.IsHeading()
}

// TopHeading matches top-level headings.
func TopHeading(b *Block) bool {
	return b.Role == RoleTopHeading
}

// Summary returns the trimmed text of every non-placeholder editable block,
// newline-joined.
func Summary(src string, conv Conventions) string {
	t, err := Parse(src, conv)
	if err != nil {
		return ""
	}
	var lines []string
	for _, b := range t.Blocks {
		if b.Role != RoleEditable {
			continue
		}
		lines = append(lines, strings.TrimSpace(b.Text()))
	}
	return strings.Join(lines, "\n")
}
