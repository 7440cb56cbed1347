package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/hrassist/coordinator"
	"github.com/tailored-agentic-units/hrassist/telemetry"
)

// session is one websocket connection. Writes are serialized because the
// status timer writes from its own goroutine.
type session struct {
	srv  *Server
	conn *websocket.Conn
	id   string

	mu sync.Mutex
}

func newSession(srv *Server, conn *websocket.Conn, id string) *session {
	return &session{srv: srv, conn: conn, id: id}
}

func (s *session) send(msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (s *session) debug(logType, message string, data map[string]any) error {
	return s.send(DebugLog{
		Type:    TypeDebugLog,
		LogType: logType,
		Message: message,
		Data:    data,
	})
}

// observer forwards directory timings for this connection's exchanges to
// the client as debug logs.
func (s *session) observer() telemetry.Observer {
	return telemetry.ObserverFunc(func(_ context.Context, e telemetry.Event) {
		switch e.Type {
		case coordinator.EventLookup:
			if e.Data["source"] != coordinator.SourceDirectory {
				return
			}
			s.debug(LogInfo, "Directory get_thread_id", map[string]any{
				"session_id": s.id,
				"thread_id":  e.Data["thread_id"],
				"ms":         e.Data["elapsed_ms"],
				"error":      e.Data["error"],
			})
		case coordinator.EventPersist:
			if written, _ := e.Data["directory_written"].(bool); !written {
				return
			}
			s.debug(LogInfo, "Directory upsert_thread_id", map[string]any{
				"session_id": s.id,
				"thread_id":  e.Data["thread_id"],
				"ms":         e.Data["elapsed_ms"],
			})
		case coordinator.EventPersistError:
			s.debug(LogError, "Thread persistence failed", map[string]any{
				"tier":  e.Data["tier"],
				"error": e.Data["error"],
			})
		}
	})
}

// handle runs one exchange. The returned error is a failed write; exchange
// failures are reported to the client and do not end the connection.
func (s *session) handle(ctx context.Context, in Inbound) error {
	if err := s.debug(LogOutgoing, "Client message", map[string]any{"message": in.Message}); err != nil {
		return err
	}

	messageID := uuid.NewString()
	start := time.Now()

	req := coordinator.Request{
		Question:    in.Message,
		ReuseThread: true,
		Streaming:   in.streaming(),
		SessionID:   s.id,
		Observer:    s.observer(),
	}

	var (
		reply *coordinator.Reply
		err   error
	)
	if req.Streaming {
		reply, err = s.stream(ctx, messageID, start, req)
	} else {
		reply, err = s.respond(ctx, messageID, start, req)
	}
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}

	return s.debug(LogIncoming, "Server response complete", map[string]any{
		"message_id": messageID,
		"answer":     reply.Answer,
		"agent":      s.srv.agentID,
		"session_id": s.id,
		"thread_id":  reply.ThreadID,
		"timings_ms": Timings{AgentTotalMS: telemetry.Since(start)},
	})
}

func (s *session) fail(messageID, message string, err error) error {
	if werr := s.debug(LogError, message, map[string]any{"error": err.Error(), "message_id": messageID}); werr != nil {
		return werr
	}
	return s.send(StreamError{Type: TypeStreamError, MessageID: messageID, Error: err.Error()})
}

func (s *session) respond(ctx context.Context, messageID string, start time.Time, req coordinator.Request) (*coordinator.Reply, error) {
	res, err := s.srv.conv.Converse(ctx, req)
	if err != nil {
		return nil, s.fail(messageID, "Non-stream error", err)
	}
	reply, err := res.Collect()
	if err != nil {
		return nil, s.fail(messageID, "Non-stream error", err)
	}

	return reply, s.send(Answer{
		Answer:    reply.Answer,
		Agent:     s.srv.agentID,
		MessageID: messageID,
		SessionID: s.id,
		ThreadID:  threadRef(reply.ThreadID),
		Timings:   Timings{AgentTotalMS: telemetry.Since(start)},
	})
}

func (s *session) stream(ctx context.Context, messageID string, start time.Time, req coordinator.Request) (*coordinator.Reply, error) {
	if err := s.send(StreamStart{Type: TypeStreamStart, MessageID: messageID, SessionID: s.id}); err != nil {
		return nil, err
	}

	var started atomic.Bool
	timer := time.AfterFunc(s.srv.statusDelay, func() {
		if !started.Load() {
			s.send(Status{Type: TypeStatus, MessageID: messageID, Status: StillWorking})
		}
	})
	defer timer.Stop()

	res, err := s.srv.conv.Converse(ctx, req)
	if err != nil {
		return nil, s.fail(messageID, "Stream error", err)
	}

	var (
		reply = &coordinator.Reply{}
		text  []byte
	)
	for inc, err := range res.Stream.All() {
		if err != nil {
			return nil, s.fail(messageID, "Stream error", err)
		}
		if inc.Final {
			reply.ThreadID = inc.ThreadID
			continue
		}

		if started.CompareAndSwap(false, true) {
			timer.Stop()
			first, _ := res.Stream.FirstFragmentAt()
			err := s.debug(LogIncoming, "Stream first chunk", map[string]any{
				"message_id": messageID,
				"session_id": s.id,
				"thread_id":  res.Resolution.ThreadID,
				"ttfc_ms":    first.Sub(start).Milliseconds(),
			})
			if err != nil {
				return nil, err
			}
		}

		text = append(text, inc.Fragment...)
		if err := s.send(StreamChunk{Type: TypeStreamChunk, MessageID: messageID, Content: inc.Fragment}); err != nil {
			return nil, err
		}
	}
	reply.Answer = string(text)

	return reply, s.send(StreamEnd{
		Type:      TypeStreamEnd,
		MessageID: messageID,
		ThreadID:  threadRef(reply.ThreadID),
		Timings:   Timings{AgentTotalMS: telemetry.Since(start)},
	})
}
