package rpc

import (
	"context"
	"fmt"
	"iter"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

// AskRequest is the client-side request shape.
type AskRequest struct {
	Question  string
	SessionID string
	ThreadID  string
	// NoReuse starts a fresh thread and records nothing.
	NoReuse bool
}

func (r AskRequest) message() (*structpb.Struct, error) {
	fields := map[string]any{
		"question":     r.Question,
		"session_id":   r.SessionID,
		"reuse_thread": !r.NoReuse,
	}
	if r.ThreadID != "" {
		fields["thread_id"] = r.ThreadID
	}
	return structpb.NewStruct(fields)
}

// Answer is a completed Ask.
type Answer struct {
	Answer   string
	ThreadID string
	RunID    string
	TraceID  string
}

// Chunk is one AskStream item. The last one has Done set.
type Chunk struct {
	Content  string
	Done     bool
	ThreadID string
	RunID    string
	TraceID  string
}

// Client calls the assistant service.
type Client struct {
	ask       *connect.Client[structpb.Struct, structpb.Struct]
	askStream *connect.Client[structpb.Struct, structpb.Struct]
}

// NewClient creates a client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	return &Client{
		ask:       connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+AskProcedure, opts...),
		askStream: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+AskStreamProcedure, opts...),
	}
}

// Ask runs one non-streaming exchange.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*Answer, error) {
	msg, err := req.message()
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.ask.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}

	f := resp.Msg.GetFields()
	return &Answer{
		Answer:   f["answer"].GetStringValue(),
		ThreadID: f["thread_id"].GetStringValue(),
		RunID:    f["run_id"].GetStringValue(),
		TraceID:  f["trace_id"].GetStringValue(),
	}, nil
}

// AskStream runs one streaming exchange. Breaking out of the loop closes
// the stream.
func (c *Client) AskStream(ctx context.Context, req AskRequest) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		msg, err := req.message()
		if err != nil {
			yield(Chunk{}, fmt.Errorf("encode request: %w", err))
			return
		}

		stream, err := c.askStream.CallServerStream(ctx, connect.NewRequest(msg))
		if err != nil {
			yield(Chunk{}, err)
			return
		}
		defer stream.Close()

		for stream.Receive() {
			f := stream.Msg().GetFields()
			chunk := Chunk{
				Content:  f["content"].GetStringValue(),
				Done:     f["type"].GetStringValue() == TypeDone,
				ThreadID: f["thread_id"].GetStringValue(),
				RunID:    f["run_id"].GetStringValue(),
				TraceID:  f["trace_id"].GetStringValue(),
			}
			if !yield(chunk, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield(Chunk{}, err)
		}
	}
}
