package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tailored-agentic-units/hrassist/coordinator"
	"github.com/tailored-agentic-units/hrassist/search"
	"github.com/tailored-agentic-units/hrassist/tools"
)

// AskTool handles ask_hr_policy.
type AskTool struct {
	conv Conversation
}

// NewAskTool creates an AskTool.
func NewAskTool(conv Conversation) *AskTool {
	return &AskTool{conv: conv}
}

// Definition returns the MCP tool definition for ask_hr_policy.
func (t *AskTool) Definition() mcp.Tool {
	return mcp.NewTool("ask_hr_policy",
		mcp.WithDescription(
			"Ask the HR assistant a policy question. Answers cite the policy file and chunk. "+
				"Follow-up questions with the same session_id continue the same conversation.",
		),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The HR policy question"),
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Caller session identifier used to continue the conversation"),
		),
		mcp.WithString("thread_id",
			mcp.Description("Continue this thread instead of the session's current one"),
		),
		mcp.WithBoolean("reuse_thread",
			mcp.Description("Continue the session's thread (default: true)"),
		),
	)
}

// Handle processes the ask_hr_policy tool call.
func (t *AskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}

	res, err := t.conv.Converse(ctx, coordinator.Request{
		Question:    req.GetString("question", ""),
		ThreadID:    req.GetString("thread_id", ""),
		ReuseThread: boolArg(req, "reuse_thread", true),
		SessionID:   sessionID,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}
	reply, err := res.Collect()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	text := reply.Answer
	if reply.ThreadID != "" {
		text += "\n\n[thread_id] " + reply.ThreadID
	}
	return mcp.NewToolResultText(text), nil
}

// SearchTool handles search_hr_policy. It shares its handler with the
// agent's search_hr_chunks tool.
type SearchTool struct {
	handler tools.Handler
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(s search.Searcher, defaultTop int) *SearchTool {
	return &SearchTool{handler: search.Handler(s, defaultTop)}
}

// Definition returns the MCP tool definition for search_hr_policy.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("search_hr_policy",
		mcp.WithDescription("Search HR policy documents. Returns the best matching chunks as JSON [{chunk_id, file, chunk}]."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query, natural language or keywords"),
		),
		mcp.WithNumber("top",
			mcp.Description("Max chunks to return (default: 5)"),
		),
	)
}

// Handle processes the search_hr_policy tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := map[string]any{"query": req.GetString("query", "")}
	if top := intArg(req, "top", 0); top > 0 {
		args["top"] = top
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode arguments: %v", err)), nil
	}

	result, err := t.handler(ctx, raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if result.IsError {
		return mcp.NewToolResultError(result.Content), nil
	}
	return mcp.NewToolResultText(result.Content), nil
}

// intArg extracts an integer argument, returning defaultVal when the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}
