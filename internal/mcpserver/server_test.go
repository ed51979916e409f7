package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/redline/internal/editservice"
	"github.com/starford/redline/internal/markup"
	"github.com/starford/redline/internal/testutil"
)

const doc = `<p class="wiki-paragraph">Hello world!</p><p class="wiki-paragraph">Second line.</p>`

func testServer(t *testing.T) (*Server, *editservice.Service) {
	t.Helper()
	svc := testutil.TestService(t, nil)
	if _, err := svc.SetContent(context.Background(), "s1", doc, ""); err != nil {
		t.Fatal(err)
	}
	return New(svc, markup.DefaultConventions()), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_sessions":
		result, err = srv.listSessions(ctx, req)
	case "get_document":
		result, err = srv.getDocument(ctx, req)
	case "get_selection":
		result, err = srv.getSelection(ctx, req)
	case "select_text":
		result, err = srv.selectText(ctx, req)
	case "propose_edit":
		result, err = srv.proposeEdit(ctx, req)
	case "get_transcript":
		result, err = srv.getTranscript(ctx, req)
	case "search_history":
		result, err = srv.searchHistory(ctx, req)
	case "get_edit_contract":
		result, err = srv.getEditContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGetDocument(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_document", map[string]any{"session": "s1"})
	if text := resultText(r); text != doc {
		t.Errorf("document = %q, want %q", text, doc)
	}

	r = callTool(t, srv, "get_document", map[string]any{"session": "nope"})
	if !r.IsError {
		t.Error("expected error for missing session")
	}
}

func TestListSessions(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "list_sessions", map[string]any{})
	if text := resultText(r); text != "s1" {
		t.Errorf("sessions = %q, want s1", text)
	}
}

func TestSelectAndPropose(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "get_selection", map[string]any{"session": "s1"})
	if !r.IsError {
		t.Error("expected error without a selection")
	}

	r = callTool(t, srv, "propose_edit", map[string]any{"session": "s1", "edited_html": "planet"})
	if !r.IsError || !strings.Contains(resultText(r), "select_text") {
		t.Errorf("propose without selection = %q, want hint to select_text", resultText(r))
	}

	r = callTool(t, srv, "select_text", map[string]any{"session": "s1", "text": "line", "block_index": float64(1)})
	if r.IsError {
		t.Fatalf("select_text: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"selected_text": "line"`) {
		t.Errorf("selection = %q", resultText(r))
	}

	r = callTool(t, srv, "get_selection", map[string]any{"session": "s1"})
	if !strings.Contains(resultText(r), `"block_index": 1`) {
		t.Errorf("selection = %q, want block 1", resultText(r))
	}

	r = callTool(t, srv, "propose_edit", map[string]any{"session": "s1", "edited_html": "row"})
	if r.IsError {
		t.Fatalf("propose_edit: %s", resultText(r))
	}
	if !strings.HasPrefix(resultText(r), "proposed: #") {
		t.Errorf("propose result = %q", resultText(r))
	}

	r = callTool(t, srv, "propose_edit", map[string]any{"session": "s1", "edited_html": "again"})
	if !r.IsError || !strings.Contains(resultText(r), "locked") {
		t.Errorf("second proposal = %q, want locked error", resultText(r))
	}

	v, err := svc.Get(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Locked || v.Proposal == nil {
		t.Errorf("view = %+v, want locked with a proposal", v)
	}
}

func TestTranscriptAndSearch(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_transcript", map[string]any{"session": "s1"})
	if !strings.Contains(resultText(r), "[SET_CONTENT]") {
		t.Errorf("transcript = %q", resultText(r))
	}

	r = callTool(t, srv, "search_history", map[string]any{"query": "Second"})
	if r.IsError || !strings.Contains(resultText(r), `"s1"`) {
		t.Errorf("search = %q, want a hit in s1", resultText(r))
	}

	r = callTool(t, srv, "search_history", map[string]any{})
	if !r.IsError {
		t.Error("expected error without query")
	}
}

func TestEditContractUsesConventions(t *testing.T) {
	svc := testutil.TestService(t, nil)
	conv := markup.DefaultConventions()
	conv.PendingClass = "mark-pending"
	srv := New(svc, conv)

	r := callTool(t, srv, "get_edit_contract", map[string]any{})
	text := resultText(r)
	if !strings.Contains(text, `class="mark-pending"`) {
		t.Errorf("contract missing pending class: %q", text)
	}
	if !strings.Contains(text, "`wiki-paragraph`") {
		t.Errorf("contract missing editable class")
	}
}
