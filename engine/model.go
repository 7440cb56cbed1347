package engine

import (
	"context"
	"iter"

	"github.com/tailored-agentic-units/hrassist/conversation"
)

// Completion is one model turn: either text or a set of tool calls.
type Completion struct {
	Content   string
	ToolCalls []conversation.ToolCall
}

// ModelDelta is one streamed model item. Text fragments arrive first; the
// last delta has Done set and carries any fully assembled tool calls.
type ModelDelta struct {
	Text      string
	Done      bool
	ToolCalls []conversation.ToolCall
}

// ChatModel is a chat-completions model with tool calling.
type ChatModel interface {
	Complete(ctx context.Context, messages []conversation.Message, tools []conversation.Tool) (*Completion, error)
	Stream(ctx context.Context, messages []conversation.Message, tools []conversation.Tool) iter.Seq2[ModelDelta, error]
}
