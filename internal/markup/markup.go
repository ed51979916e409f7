// Package markup parses document markup into an ordered list of typed
// top-level blocks and renders it back.
//
// The tree is deliberately shallow: only the direct children of the document
// are blocks. Everything below a block is kept as html.Node children and
// addressed through the block that encloses it.
package markup

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Conventions names the reserved classes the document producer uses to tag
// blocks and markers.
type Conventions struct {
	EditableClass   string `yaml:"editable_class"`
	EmptyClass      string `yaml:"empty_class"`
	HeadingClass    string `yaml:"heading_class"`
	TopHeadingClass string `yaml:"top_heading_class"`
	PendingClass    string `yaml:"pending_class"`
	AppliedClass    string `yaml:"applied_class"`
}

// DefaultConventions returns the wiki-flavoured class names.
func DefaultConventions() Conventions {
	return Conventions{
		EditableClass:   "wiki-paragraph",
		EmptyClass:      "empty-paragraph",
		HeadingClass:    "mw-heading",
		TopHeadingClass: "mw-heading2",
		PendingClass:    "highlight-yellow",
		AppliedClass:    "highlight-green",
	}
}

// Role classifies a top-level block.
type Role int

const (
	RoleOther Role = iota
	RoleEditable
	RoleEmpty
	RoleHeading
	RoleTopHeading
)

func (r Role) String() string {
	switch r {
	case RoleEditable:
		return "editable"
	case RoleEmpty:
		return "empty"
	case RoleHeading:
		return "heading"
	case RoleTopHeading:
		return "top-heading"
	default:
		return "other"
	}
}

// Block is one top-level element of the document.
type Block struct {
	Node *html.Node
	Role Role
}

// IsEditable reports whether the block is an editable paragraph, including
// empty placeholders.
func (b *Block) IsEditable() bool {
	return b.Role == RoleEditable || b.Role == RoleEmpty
}

// IsHeading reports whether the block is a heading of any level.
func (b *Block) IsHeading() bool {
	return b.Role == RoleHeading || b.Role == RoleTopHeading
}

// InnerHTML returns the rendered children of the block.
func (b *Block) InnerHTML() string {
	return InnerHTML(b.Node)
}

// Text returns the concatenated text content of the block.
func (b *Block) Text() string {
	return TextContent(b.Node)
}

// Tree is a parsed document.
type Tree struct {
	conv   Conventions
	root   *html.Node
	Blocks []*Block
}

// Parse builds a Tree from src. The HTML parser is lenient, so malformed
// markup yields a best-effort tree rather than an error.
func Parse(src string, conv Conventions) (*Tree, error) {
	root := bodyNode()
	nodes, err := html.ParseFragment(strings.NewReader(src), bodyNode())
	if err != nil {
		return nil, fmt.Errorf("markup: parse: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	t := &Tree{conv: conv, root: root}
	t.Reindex()
	return t, nil
}

func bodyNode() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// Conventions returns the class names the tree was parsed with.
func (t *Tree) Conventions() Conventions {
	return t.conv
}

// Reindex rebuilds Blocks after the node tree has been changed.
func (t *Tree) Reindex() {
	t.Blocks = nil
	for c := t.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		t.Blocks = append(t.Blocks, &Block{Node: c, Role: t.classify(c)})
	}
}

func (t *Tree) classify(n *html.Node) Role {
	switch {
	case t.conv.HeadingClass != "" && HasClass(n, t.conv.HeadingClass):
		if t.conv.TopHeadingClass != "" && HasClass(n, t.conv.TopHeadingClass) {
			return RoleTopHeading
		}
		return RoleHeading
	case n.DataAtom == atom.P && HasClass(n, t.conv.EditableClass):
		if t.conv.EmptyClass != "" && HasClass(n, t.conv.EmptyClass) {
			return RoleEmpty
		}
		return RoleEditable
	default:
		return RoleOther
	}
}

// Render serializes the whole document.
func (t *Tree) Render() (string, error) {
	var buf bytes.Buffer
	for c := t.root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("markup: render: %w", err)
		}
	}
	return buf.String(), nil
}

// Fragment parses src as children of ctx without attaching them.
func Fragment(ctx *html.Node, src string) ([]*html.Node, error) {
	if ctx == nil || ctx.Type != html.ElementNode {
		ctx = bodyNode()
	}
	nodes, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return nil, fmt.Errorf("markup: parse fragment: %w", err)
	}
	return nodes, nil
}

// Replace swaps old for the given nodes, in order. Blocks must be reindexed
// by the caller when old is a top-level node.
func Replace(old *html.Node, nodes ...*html.Node) {
	parent := old.Parent
	if parent == nil {
		return
	}
	for _, n := range nodes {
		parent.InsertBefore(n, old)
	}
	parent.RemoveChild(old)
}

// SetInner replaces all children of n with nodes.
func SetInner(n *html.Node, nodes ...*html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
}

// ShallowClone copies an element's tag and attributes but none of its
// children.
func ShallowClone(n *html.Node) *html.Node {
	return &html.Node{
		Type:     n.Type,
		Data:     n.Data,
		DataAtom: n.DataAtom,
		Attr:     append([]html.Attribute(nil), n.Attr...),
	}
}

// Element creates a detached element with a single class attribute.
func Element(a atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	if class != "" {
		n.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	return n
}

// HasClass reports whether n carries class in its class attribute.
func HasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode || class == "" {
		return false
	}
	for _, a := range n.Attr {
		if a.Namespace != "" || a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		// Parser-built nodes always render; a failure here only drops the node.
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// TextContent returns the concatenated text nodes below n.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
