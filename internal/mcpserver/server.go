// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Redline sessions to an editing agent via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/redline/internal/apperr"
	"github.com/starford/redline/internal/editservice"
	"github.com/starford/redline/internal/markup"
)

const contractURI = "redline://edit-contract"

// Server wraps the MCP server with Redline tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *editservice.Service
	contract string
}

// New creates a new MCP server with all Redline tools registered.
func New(svc *editservice.Service, conv markup.Conventions) *Server {
	s := &Server{svc: svc, contract: EditContract(conv)}

	s.mcp = server.NewMCPServer(
		"Redline",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List stored editing sessions with their checksums."),
	), s.listSessions)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Read the current HTML document of a session."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("get_selection",
		mcp.WithDescription("Return the user's current selection and its context window."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
	), s.getSelection)

	s.mcp.AddTool(mcp.NewTool("select_text",
		mcp.WithDescription("Select text in the document and build its context window. "+
			"The first editable block containing the text is used unless block_index is given."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Exact text to select")),
		mcp.WithNumber("block_index", mcp.Description("Optional index among editable blocks")),
	), s.selectText)

	s.mcp.AddTool(mcp.NewTool("propose_edit",
		mcp.WithDescription("Propose replacement markup for the current selection. "+
			"Read the contract first via the get_edit_contract tool or the "+contractURI+" resource."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("edited_html", mcp.Required(), mcp.Description("Replacement for the selected text")),
	), s.proposeEdit)

	s.mcp.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Return the action log of a session as plain text."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session id")),
	), s.getTranscript)

	s.mcp.AddTool(mcp.NewTool("search_history",
		mcp.WithDescription("Full-text search through the edit history of all sessions."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchHistory)

	s.mcp.AddTool(mcp.NewTool("get_edit_contract",
		mcp.WithDescription("Returns the Redline edit contract. "+
			"Call this before proposing edits to ensure correct markup."),
	), s.getEditContract)

	// Resource: edit contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Edit Contract",
			mcp.WithResourceDescription("How selections are delivered and how proposed markup must look."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrLocked):
		return mcp.NewToolResultError("session is locked: a proposal is already pending")
	case errors.Is(err, apperr.ErrNotEditable):
		return mcp.NewToolResultError("session is read-only")
	case errors.Is(err, apperr.ErrNoSelection):
		return mcp.NewToolResultError("no selection: call select_text first")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.svc.List(ctx)
	if err != nil {
		return toolError(err), nil
	}
	ids := make([]string, 0, len(metas))
	for _, m := range metas {
		ids = append(ids, m.ID)
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.svc.Get(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(v.ContentHTML), nil
}

func (s *Server) getSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.svc.Get(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	if v.Selection == nil {
		return mcp.NewToolResultError("no selection"), nil
	}
	return jsonResult(v.Selection), nil
}

func (s *Server) selectText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var blockIndex *int
	if n, nErr := req.RequireFloat("block_index"); nErr == nil {
		i := int(n)
		blockIndex = &i
	}
	v, err := s.svc.Select(ctx, id, &text, blockIndex)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(v.Selection), nil
}

func (s *Server) proposeEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edited, err := req.RequireString("edited_html")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.Propose(ctx, id, edited)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("proposed: #%d awaiting review", p.ID)), nil
}

func (s *Server) getTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.Transcript(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) searchHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getEditContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.contract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     s.contract,
		},
	}, nil
}
