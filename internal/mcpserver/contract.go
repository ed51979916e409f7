package mcpserver

import (
	"fmt"

	"github.com/starford/redline/internal/markup"
)

// EditContract describes how an agent should read a selection and shape the
// markup it proposes. The class names come from the configured conventions.
func EditContract(c markup.Conventions) string {
	return fmt.Sprintf(`# Redline Edit Contract

A session holds one HTML document made of top-level blocks. The user selects
text in one block; you receive the selection and a context window and answer
with replacement markup for exactly the selected text.

## Blocks

- Editable paragraphs carry the class `+"`%[1]s`"+`.
- Placeholder paragraphs carry `+"`%[2]s`"+` and have no text.
- Section headings carry `+"`%[3]s`"+`; top-level sections use `+"`%[4]s`"+`.

## Workflow

1. Call `+"`get_selection`"+` (or `+"`select_text`"+` to choose text yourself).
2. Read `+"`selected_text`"+` and `+"`context_window`"+`. The context window is
   plain text of the neighbouring blocks or the enclosing section.
3. Call `+"`propose_edit`"+` with `+"`edited_html`"+`: the replacement for the
   selected text only, never the whole block.
4. The user applies, cancels or defers the proposal. While it is pending the
   session is locked and further proposals are refused.

## Markers

- A pending edit wraps the selected text in
  `+"`<span class=\"%[5]s\">`"+`.
- An applied edit wraps the replacement in
  `+"`<span class=\"%[6]s\">`"+`.
- Do not emit either marker class yourself.

## Rules

1. `+"`edited_html`"+` may contain inline markup (b, i, a, span) but no block
   elements.
2. Keep the language of the surrounding document.
3. An empty `+"`edited_html`"+` deletes the selected text.
`, c.EditableClass, c.EmptyClass, c.HeadingClass, c.TopHeadingClass, c.PendingClass, c.AppliedClass)
}
