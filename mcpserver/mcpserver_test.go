package mcpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tailored-agentic-units/hrassist/coordinator"
	"github.com/tailored-agentic-units/hrassist/directory"
	"github.com/tailored-agentic-units/hrassist/engine"
	"github.com/tailored-agentic-units/hrassist/mcpserver"
	"github.com/tailored-agentic-units/hrassist/search"
)

type answerEngine struct {
	answer   string
	threadID string
	err      error
	last     engine.Request
}

func (e *answerEngine) Respond(_ context.Context, req engine.Request) (*engine.Reply, error) {
	e.last = req
	if e.err != nil {
		return nil, e.err
	}
	return &engine.Reply{Content: engine.Text(e.answer), ThreadID: e.threadID}, nil
}

func (e *answerEngine) Stream(context.Context, engine.Request) iter.Seq2[engine.Delta, error] {
	return func(yield func(engine.Delta, error) bool) {
		yield(engine.Delta{}, errors.New("not used"))
	}
}

type fixedSearcher struct {
	chunks []search.Chunk
	query  string
	top    int
}

func (s *fixedSearcher) Search(_ context.Context, query string, top int) ([]search.Chunk, error) {
	s.query, s.top = query, top
	return s.chunks, nil
}

func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestAskTool_Definition(t *testing.T) {
	def := mcpserver.NewAskTool(nil).Definition()

	if def.Name != "ask_hr_policy" {
		t.Errorf("tool name = %q, want ask_hr_policy", def.Name)
	}
	for _, p := range []string{"question", "session_id", "thread_id", "reuse_thread"} {
		if _, ok := def.InputSchema.Properties[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}
	required := strings.Join(def.InputSchema.Required, ",")
	if !strings.Contains(required, "question") || !strings.Contains(required, "session_id") {
		t.Errorf("required = %v, want question and session_id", def.InputSchema.Required)
	}
}

func TestAskTool_Handle(t *testing.T) {
	eng := &answerEngine{answer: "See policy doc.", threadID: "t-100"}
	dir := directory.NewMemory()
	tool := mcpserver.NewAskTool(coordinator.New(eng, coordinator.WithDirectory(dir)))
	ctx := context.Background()

	result, err := tool.Handle(ctx, makeReq(map[string]any{
		"question":   "What is the leave policy?",
		"session_id": "S1",
	}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("Handle() returned error result: %s", resultText(result))
	}

	text := resultText(result)
	if !strings.HasPrefix(text, "See policy doc.") || !strings.Contains(text, "[thread_id] t-100") {
		t.Errorf("result = %q", text)
	}
	if got, _ := dir.Get(ctx, "S1"); got != "t-100" {
		t.Errorf("directory maps S1 to %q, want t-100", got)
	}

	if _, err := tool.Handle(ctx, makeReq(map[string]any{"question": "again", "session_id": "S1"})); err != nil {
		t.Fatal(err)
	}
	if eng.last.ThreadID != "t-100" {
		t.Errorf("follow-up continued %q, want t-100", eng.last.ThreadID)
	}

	if _, err := tool.Handle(ctx, makeReq(map[string]any{"question": "fresh", "session_id": "S1", "reuse_thread": false})); err != nil {
		t.Fatal(err)
	}
	if eng.last.ThreadID != "" {
		t.Errorf("reuse_thread=false continued %q", eng.last.ThreadID)
	}
}

func TestAskTool_Errors(t *testing.T) {
	eng := &answerEngine{err: errors.New("agent service unavailable")}
	tool := mcpserver.NewAskTool(coordinator.New(eng))

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing session", map[string]any{"question": "q"}, "session_id"},
		{"empty question", map[string]any{"question": "", "session_id": "S1"}, coordinator.ErrEmptyQuestion.Error()},
		{"engine failure", map[string]any{"question": "q", "session_id": "S1"}, "agent service unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Handle(context.Background(), makeReq(tt.args))
			if err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if !result.IsError {
				t.Fatal("expected error result")
			}
			if !strings.Contains(resultText(result), tt.want) {
				t.Errorf("result = %q, want it to mention %q", resultText(result), tt.want)
			}
		})
	}
}

func TestSearchTool_Handle(t *testing.T) {
	s := &fixedSearcher{chunks: []search.Chunk{
		{ChunkID: "leave-1", File: "leave.pdf", Chunk: "Employees receive 12 weeks."},
	}}
	tool := mcpserver.NewSearchTool(s, 5)

	result, err := tool.Handle(context.Background(), makeReq(map[string]any{"query": "parental leave", "top": float64(2)}))
	if err != nil || result.IsError {
		t.Fatalf("Handle() = %v, %v", resultText(result), err)
	}
	if s.query != "parental leave" || s.top != 2 {
		t.Errorf("searched (%q, %d), want (parental leave, 2)", s.query, s.top)
	}

	var chunks []map[string]string
	if err := json.Unmarshal([]byte(resultText(result)), &chunks); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(chunks) != 1 || chunks[0]["chunk_id"] != "leave-1" || chunks[0]["file"] != "leave.pdf" {
		t.Errorf("chunks = %v", chunks)
	}

	if _, err := tool.Handle(context.Background(), makeReq(map[string]any{"query": "pto"})); err != nil {
		t.Fatal(err)
	}
	if s.top != 5 {
		t.Errorf("default top = %d, want 5", s.top)
	}
}

func TestSearchTool_EmptyQuery(t *testing.T) {
	tool := mcpserver.NewSearchTool(&fixedSearcher{}, 5)

	result, err := tool.Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected error result for empty query")
	}
}

func TestNew_RegistersTools(t *testing.T) {
	s := mcpserver.New(coordinator.New(&answerEngine{}), &fixedSearcher{}, 5)
	if s == nil {
		t.Fatal("New() = nil")
	}
	tools := s.ListTools()
	for _, name := range []string{"ask_hr_policy", "search_hr_policy"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}
