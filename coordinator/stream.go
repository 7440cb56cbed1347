package coordinator

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tailored-agentic-units/hrassist/engine"
	"github.com/tailored-agentic-units/hrassist/telemetry"
)

// Increment is one item of a streamed exchange: a non-empty content
// fragment, or the single terminal marker carrying the final thread id
// (which may be empty).
type Increment struct {
	Fragment string
	Final    bool
	ThreadID string
}

// Stream is a lazy, single-pass sequence of Increments. The engine is not
// called until iteration starts. Persistence runs when the terminal
// increment is reached; stopping early cancels the engine call and records
// nothing.
type Stream struct {
	ctx    context.Context
	cancel context.CancelFunc
	x      *exchange
	req    engine.Request

	consumed  atomic.Bool
	closeOnce sync.Once

	mu    sync.Mutex
	first time.Time
}

func newStream(ctx context.Context, x *exchange, req engine.Request) *Stream {
	sctx, cancel := context.WithCancel(ctx)
	return &Stream{ctx: sctx, cancel: cancel, x: x, req: req}
}

// All returns the increment sequence. A second call, or a call after Close,
// yields only ErrStreamConsumed.
func (s *Stream) All() iter.Seq2[Increment, error] {
	return func(yield func(Increment, error) bool) {
		if !s.consumed.CompareAndSwap(false, true) {
			yield(Increment{}, ErrStreamConsumed)
			return
		}
		defer s.Close()

		ctx := s.ctx
		invokeStart := time.Now()
		var answerLen int

		for d, err := range s.x.c.engine.Stream(ctx, s.req) {
			if err != nil {
				err = fmt.Errorf("engine: %w", err)
				s.x.fail(ctx, err)
				yield(Increment{}, err)
				return
			}
			if d.Final {
				s.terminal(ctx, invokeStart, d.ThreadID, answerLen)
				yield(Increment{Final: true, ThreadID: d.ThreadID}, nil)
				return
			}

			text := engine.Coerce(d.Content)
			if text == "" {
				continue
			}
			s.markFirst(ctx, invokeStart)
			answerLen += len(text)

			if !yield(Increment{Fragment: text}, nil) {
				s.x.emit(ctx, EventStreamAbandon, telemetry.LevelWarning, map[string]any{
					"session_id": s.x.session,
					"elapsed_ms": telemetry.Since(s.x.start),
				})
				return
			}
		}

		// The engine ended without a terminal delta: no identifiable thread.
		s.terminal(ctx, invokeStart, "", answerLen)
		yield(Increment{Final: true}, nil)
	}
}

// Collect drains the stream into a Reply whose answer is the concatenation
// of all fragments.
func (s *Stream) Collect() (*Reply, error) {
	var (
		b        strings.Builder
		threadID string
	)
	for inc, err := range s.All() {
		if err != nil {
			return nil, err
		}
		if inc.Final {
			threadID = inc.ThreadID
			continue
		}
		b.WriteString(inc.Fragment)
	}
	return &Reply{Answer: b.String(), ThreadID: threadID}, nil
}

// FirstFragmentAt reports when the first content fragment was yielded.
func (s *Stream) FirstFragmentAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.first, !s.first.IsZero()
}

// Close abandons the stream if it has not been consumed and ends its span.
// Safe to call more than once and after iteration finished.
func (s *Stream) Close() {
	s.consumed.Store(true)
	s.closeOnce.Do(func() {
		s.cancel()
		s.x.span.End()
	})
}

func (s *Stream) markFirst(ctx context.Context, invokeStart time.Time) {
	s.mu.Lock()
	if !s.first.IsZero() {
		s.mu.Unlock()
		return
	}
	s.first = time.Now()
	s.mu.Unlock()

	ttfc := telemetry.Since(invokeStart)
	s.x.span.SetAttributes(attribute.Int64("agent.first_token_ms", ttfc))
	s.x.emit(ctx, EventFirstToken, telemetry.LevelInfo, map[string]any{
		"ttfc_ms": ttfc,
	})
}

func (s *Stream) terminal(ctx context.Context, invokeStart time.Time, threadID string, answerLen int) {
	s.x.span.SetAttributes(attribute.Int64("get_response_ms", telemetry.Since(invokeStart)))
	s.x.reconcile(ctx, threadID)
	s.x.complete(ctx, threadID, answerLen)
}
