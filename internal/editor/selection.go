package editor

import (
	"strings"

	"github.com/starford/redline/internal/markup"
)

// Target delimiters mark the edit location inside a heading-scoped window.
const (
	TargetOpen  = "<target>"
	TargetClose = "</target>"
)

// Match locates the selected text as byte offsets into the target block's
// inner markup.
type Match struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Selection is the resolved user highlight.
type Selection struct {
	Text          string  `json:"selected_text"`
	ContextWindow *string `json:"context_window,omitempty"`
	// BlockIndex is the position of the target among editable blocks.
	BlockIndex int    `json:"block_index"`
	Match      *Match `json:"match,omitempty"`
}

func (s *Selection) clone() *Selection {
	if s == nil {
		return nil
	}
	c := *s
	c.ContextWindow = copyString(s.ContextWindow)
	if s.Match != nil {
		m := *s.Match
		c.Match = &m
	}
	return &c
}

// SelectText resolves text against the current document. A nil or blank
// text without blockIndex clears the selection. blockIndex, when given,
// addresses the target directly among editable blocks and wins over the text
// search. It reports false when no block could be resolved, in which case the
// selection is left unchanged.
func (e *Editor) SelectText(text *string, blockIndex *int) bool {
	if text == nil || (blockIndex == nil && strings.TrimSpace(*text) == "") {
		e.selection = nil
		e.emit(EventSelection, nil)
		return true
	}
	sel, ok := e.resolve(*text, blockIndex)
	if !ok {
		return false
	}
	e.selection = sel
	e.emit(EventSelection, nil)
	return true
}

func (e *Editor) resolve(text string, blockIndex *int) (*Selection, bool) {
	tree, err := markup.Parse(e.content, e.conv)
	if err != nil {
		return nil, false
	}
	editable := tree.Editable()
	needle := strings.TrimSpace(text)

	pos := -1
	if blockIndex != nil {
		if *blockIndex < 0 || *blockIndex >= len(editable) {
			return nil, false
		}
		pos = *blockIndex
	} else {
		for i, bi := range editable {
			if strings.Contains(strings.TrimSpace(tree.Blocks[bi].InnerHTML()), needle) {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, false
		}
	}

	target := editable[pos]
	inner := tree.Blocks[target].InnerHTML()
	var match *Match
	if start := strings.Index(inner, needle); start >= 0 {
		match = &Match{Start: start, End: start + len(needle)}
	}

	sel := &Selection{Text: text, BlockIndex: pos, Match: match}
	switch e.strategy {
	case StrategyHeading:
		sel.ContextWindow = headingWindow(tree, target, inner, match)
	default:
		sel.ContextWindow = neighborWindow(tree, target)
	}
	return sel, true
}

func neighborWindow(tree *markup.Tree, target int) *string {
	var parts []string
	if prev := tree.Prev(target, markup.EditableOrHeading); prev >= 0 {
		parts = append(parts, tree.Blocks[prev].InnerHTML())
	}
	parts = append(parts, tree.Blocks[target].InnerHTML())
	if next := tree.Next(target, markup.EditableOrHeading); next >= 0 {
		parts = append(parts, tree.Blocks[next].InnerHTML())
	}
	w := strings.Join(parts, "")
	return &w
}

// headingWindow collects the section from the nearest preceding top-level
// heading up to the next one, one block per line.
func headingWindow(tree *markup.Tree, target int, inner string, match *Match) *string {
	start := tree.Prev(target, markup.TopHeading)
	if start < 0 {
		return nil
	}
	var lines []string
	for i := start; i < len(tree.Blocks); i++ {
		if i > start && markup.TopHeading(tree.Blocks[i]) {
			break
		}
		if i == target {
			lines = append(lines, markTarget(inner, match)...)
			continue
		}
		if s := strings.TrimSpace(tree.Blocks[i].InnerHTML()); s != "" {
			lines = append(lines, s)
		}
	}
	w := strings.Join(lines, "\n")
	return &w
}

func markTarget(inner string, m *Match) []string {
	if m == nil || m.Start == m.End {
		if s := strings.TrimSpace(inner); s != "" {
			return []string{s, TargetOpen + TargetClose}
		}
		return []string{TargetOpen + TargetClose}
	}
	marked := inner[:m.Start] + TargetOpen + inner[m.Start:m.End] + TargetClose + inner[m.End:]
	return []string{strings.TrimSpace(marked)}
}
