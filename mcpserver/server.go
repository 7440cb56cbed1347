// Package mcpserver exposes the assistant as MCP tools over stdio.
//
// Two tools are registered: ask_hr_policy runs a full exchange through the
// coordinator, and search_hr_policy returns raw policy chunks from the
// index without involving the model.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/tailored-agentic-units/hrassist/coordinator"
	"github.com/tailored-agentic-units/hrassist/search"
)

// Version is reported to MCP clients.
var Version = "dev"

// Conversation runs exchanges. *coordinator.Coordinator satisfies it.
type Conversation interface {
	Converse(ctx context.Context, req coordinator.Request) (*coordinator.Result, error)
}

// New creates the MCP server with both tools registered.
func New(conv Conversation, searcher search.Searcher, defaultTop int) *server.MCPServer {
	s := server.NewMCPServer(
		"hrassist",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Answer HR policy questions. Use ask_hr_policy for answers with "+
			"conversation continuity per session_id, or search_hr_policy to read policy chunks directly."),
	)

	ask := NewAskTool(conv)
	s.AddTool(ask.Definition(), ask.Handle)

	find := NewSearchTool(searcher, defaultTop)
	s.AddTool(find.Definition(), find.Handle)

	return s
}

// Serve runs s on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
