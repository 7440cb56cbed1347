// Package rpc exposes the coordinator as a Connect service.
//
// Messages are google.protobuf.Struct values so the service needs no
// generated code; any Connect, gRPC or gRPC-Web client can call it, and the
// Connect protocol also accepts plain JSON over HTTP POST.
//
//	Ask       {question, session_id, thread_id?, reuse_thread?} -> {answer, thread_id, run_id, trace_id}
//	AskStream same request -> {type:"chunk", content}... then {type:"done", thread_id, run_id, trace_id}
//
// A session id is required: RPC callers are always server context.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/hrassist/coordinator"
)

// Service and procedure paths.
const (
	ServiceName = "hrassist.v1.AssistantService"

	AskProcedure       = "/" + ServiceName + "/Ask"
	AskStreamProcedure = "/" + ServiceName + "/AskStream"
)

// Stream message types.
const (
	TypeChunk = "chunk"
	TypeDone  = "done"
)

// ErrMissingSession is returned when a request carries no session_id.
var ErrMissingSession = errors.New("session_id is required")

// Conversation runs exchanges. *coordinator.Coordinator satisfies it.
type Conversation interface {
	Converse(ctx context.Context, req coordinator.Request) (*coordinator.Result, error)
}

type service struct {
	conv Conversation
}

// NewHandler returns the service's path prefix and handler, ready to mount
// on a mux.
func NewHandler(conv Conversation, opts ...connect.HandlerOption) (string, http.Handler) {
	svc := &service{conv: conv}

	mux := http.NewServeMux()
	mux.Handle(AskProcedure, connect.NewUnaryHandler(AskProcedure, svc.ask, opts...))
	mux.Handle(AskStreamProcedure, connect.NewServerStreamHandler(AskStreamProcedure, svc.askStream, opts...))
	return "/" + ServiceName + "/", mux
}

func decodeRequest(msg *structpb.Struct, streaming bool) (coordinator.Request, error) {
	fields := msg.GetFields()

	req := coordinator.Request{
		Question:    fields["question"].GetStringValue(),
		ThreadID:    fields["thread_id"].GetStringValue(),
		SessionID:   fields["session_id"].GetStringValue(),
		ReuseThread: true,
		Streaming:   streaming,
	}
	if v, ok := fields["reuse_thread"]; ok {
		req.ReuseThread = v.GetBoolValue()
	}
	if req.SessionID == "" {
		return req, connect.NewError(connect.CodeInvalidArgument, ErrMissingSession)
	}
	return req, nil
}

func toConnectError(err error) error {
	if errors.Is(err, coordinator.ErrEmptyQuestion) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	if errors.Is(err, context.Canceled) {
		return connect.NewError(connect.CodeCanceled, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("encode response: %w", err))
	}
	return s, nil
}

func (s *service) ask(ctx context.Context, r *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	req, err := decodeRequest(r.Msg, false)
	if err != nil {
		return nil, err
	}

	res, err := s.conv.Converse(ctx, req)
	if err != nil {
		return nil, toConnectError(err)
	}
	reply, err := res.Collect()
	if err != nil {
		return nil, toConnectError(err)
	}

	msg, err := newStruct(map[string]any{
		"answer":    reply.Answer,
		"thread_id": reply.ThreadID,
		"run_id":    res.RunID,
		"trace_id":  res.TraceID,
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(msg), nil
}

func (s *service) askStream(ctx context.Context, r *connect.Request[structpb.Struct], stream *connect.ServerStream[structpb.Struct]) error {
	req, err := decodeRequest(r.Msg, true)
	if err != nil {
		return err
	}

	res, err := s.conv.Converse(ctx, req)
	if err != nil {
		return toConnectError(err)
	}

	for inc, err := range res.Stream.All() {
		if err != nil {
			return toConnectError(err)
		}

		fields := map[string]any{"type": TypeChunk, "content": inc.Fragment}
		if inc.Final {
			fields = map[string]any{
				"type":      TypeDone,
				"thread_id": inc.ThreadID,
				"run_id":    res.RunID,
				"trace_id":  res.TraceID,
			}
		}
		msg, err := newStruct(fields)
		if err != nil {
			return err
		}
		// A failed send ends iteration, which abandons the exchange unpersisted.
		if err := stream.Send(msg); err != nil {
			return err
		}
	}
	return nil
}
