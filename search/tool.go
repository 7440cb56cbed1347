package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/hrassist/conversation"
	"github.com/tailored-agentic-units/hrassist/tools"
)

// ToolName is the name the model calls the retrieval tool by.
const ToolName = "search_hr_chunks"

// maxChunkRunes caps each chunk handed back to the model.
const maxChunkRunes = 1200

// Tool is the model-facing definition of the retrieval tool.
var Tool = conversation.Tool{
	Name:        ToolName,
	Description: "Search HR policy chunks. Input is a natural-language query.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Natural-language search query",
			},
			"top": map[string]any{
				"type":        "integer",
				"description": fmt.Sprintf("Number of chunks to return (default %d)", DefaultTop),
			},
		},
		"required": []string{"query"},
	},
}

type toolArgs struct {
	Query string `json:"query"`
	Top   int    `json:"top,omitempty"`
}

type compactChunk struct {
	ChunkID string `json:"chunk_id"`
	File    string `json:"file"`
	Chunk   string `json:"chunk"`
}

// Handler adapts a Searcher to a tool handler. The result is a JSON array of
// {chunk_id, file, chunk} with chunk text truncated to 1200 characters.
// defaultTop applies when the model omits top.
func Handler(s Searcher, defaultTop int) tools.Handler {
	return func(ctx context.Context, raw json.RawMessage) (tools.Result, error) {
		var args toolArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return tools.Result{}, fmt.Errorf("%w: %v", tools.ErrInvalidArguments, err)
		}
		if strings.TrimSpace(args.Query) == "" {
			return tools.Result{Content: "error: query is required", IsError: true}, nil
		}

		if args.Top <= 0 {
			args.Top = defaultTop
		}

		chunks, err := s.Search(ctx, args.Query, args.Top)
		if err != nil {
			return tools.Result{}, err
		}

		compact := make([]compactChunk, 0, len(chunks))
		for _, c := range chunks {
			compact = append(compact, compactChunk{
				ChunkID: c.ChunkID,
				File:    c.File,
				Chunk:   truncate(c.Chunk, maxChunkRunes),
			})
		}

		out, err := json.Marshal(compact)
		if err != nil {
			return tools.Result{}, err
		}
		return tools.Result{Content: string(out)}, nil
	}
}

// RegisterTool adds search_hr_chunks to reg.
func RegisterTool(reg *tools.Registry, s Searcher, defaultTop int) error {
	return reg.Register(Tool, Handler(s, defaultTop))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
