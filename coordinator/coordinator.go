// Package coordinator runs one question/answer exchange with thread
// continuity.
//
// Converse resolves which thread a session should continue (durable
// directory first, then the local fallback slot in CLI context), calls the
// engine, and records the thread id the engine reports. The result has the
// same shape for every transport: a completed Reply, or a Stream of
// Increments that ends with one terminal Increment carrying the thread id.
//
//	c := coordinator.New(agent,
//		coordinator.WithDirectory(dir),
//		coordinator.WithFallback(localstate.Open(".state")),
//	)
//	res, err := c.Converse(ctx, coordinator.Request{Question: q, ReuseThread: true})
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/hrassist/directory"
	"github.com/tailored-agentic-units/hrassist/engine"
	"github.com/tailored-agentic-units/hrassist/telemetry"
)

// Fallback is the local single-slot store used when no session id is
// supplied. *localstate.State satisfies it.
type Fallback interface {
	LoadOrCreateSession(ctx context.Context) (string, error)
	LoadThread(ctx context.Context) (string, error)
	SaveThread(ctx context.Context, threadID string) error
}

// Request is one exchange.
type Request struct {
	Question string
	// ThreadID, when set, is used verbatim and resolution is skipped.
	ThreadID string
	// ReuseThread enables resolution and persistence. When false the
	// exchange starts a fresh thread and nothing is recorded.
	ReuseThread bool
	Streaming   bool
	// SessionID identifies the caller. Empty means CLI context: the session
	// comes from the fallback store, which is also read and refreshed.
	SessionID string
	// Observer receives this exchange's events in addition to the
	// coordinator's own observer.
	Observer telemetry.Observer
}

// Reply is a completed answer.
type Reply struct {
	Answer   string
	ThreadID string
}

// Result is what Converse returns. Exactly one of Reply and Stream is set.
type Result struct {
	RunID     string
	TraceID   string
	SessionID string
	// Resolution records which tier supplied the thread passed to the engine.
	Resolution Resolution

	Reply  *Reply
	Stream *Stream
}

// Collect returns the Reply, draining the Stream first when streaming.
func (r *Result) Collect() (*Reply, error) {
	if r.Stream != nil {
		return r.Stream.Collect()
	}
	return r.Reply, nil
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDirectory sets the durable thread directory.
func WithDirectory(d directory.Directory) Option {
	return func(c *Coordinator) { c.directory = d }
}

// WithFallback sets the local fallback store used in CLI context.
func WithFallback(f Fallback) Option {
	return func(c *Coordinator) { c.fallback = f }
}

// WithObserver sets the process-wide event observer.
func WithObserver(o telemetry.Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// WithTracer sets the tracer used for the agent.ask span.
func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) { c.tracer = t }
}

// WithAgentID sets the agent.id span attribute.
func WithAgentID(id string) Option {
	return func(c *Coordinator) { c.agentID = id }
}

// Coordinator is safe for concurrent use; it holds no per-exchange state.
type Coordinator struct {
	engine    engine.Engine
	directory directory.Directory
	fallback  Fallback
	observer  telemetry.Observer
	tracer    trace.Tracer
	agentID   string
}

// New creates a Coordinator over eng. Without a directory, resolution and
// persistence use only the fallback tier.
func New(eng engine.Engine, opts ...Option) *Coordinator {
	c := &Coordinator{
		engine:   eng,
		observer: telemetry.NoOpObserver{},
		tracer:   otel.Tracer("hrassist/coordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// exchange carries one Converse call's state through invoke and reconcile.
type exchange struct {
	c        *Coordinator
	span     trace.Span
	obs      telemetry.Observer
	start    time.Time
	session  string
	cli      bool
	reuse    bool
	known    string // directory value before the call
	resolved Resolution
}

func (x *exchange) emit(ctx context.Context, typ telemetry.EventType, level telemetry.Level, data map[string]any) {
	x.obs.OnEvent(ctx, telemetry.NewEvent(typ, level, "coordinator.Converse", data))
}

func (x *exchange) fail(ctx context.Context, err error) {
	x.span.RecordError(err)
	x.span.SetStatus(codes.Error, err.Error())
	x.emit(ctx, EventError, telemetry.LevelError, map[string]any{
		"error":      err.Error(),
		"elapsed_ms": telemetry.Since(x.start),
	})
}

// Converse runs one exchange. Engine failures are returned; lookup misses,
// an unreachable directory and persistence failures are not.
func (c *Coordinator) Converse(ctx context.Context, req Request) (*Result, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	runID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "agent.ask", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("question.len", len(question)),
	))
	if c.agentID != "" {
		span.SetAttributes(attribute.String("agent.id", c.agentID))
	}

	x := &exchange{
		c:     c,
		span:  span,
		obs:   telemetry.Join(c.observer, req.Observer),
		start: time.Now(),
		reuse: req.ReuseThread,
	}

	if err := x.loadSession(ctx, req.SessionID); err != nil {
		x.fail(ctx, err)
		span.End()
		return nil, err
	}

	x.emit(ctx, EventStart, telemetry.LevelInfo, map[string]any{
		"run_id":       runID,
		"session_id":   x.session,
		"reuse_thread": req.ReuseThread,
		"streaming":    req.Streaming,
		"cli":          x.cli,
	})

	x.resolve(ctx, req.ThreadID)
	if x.resolved.ThreadID != "" {
		span.SetAttributes(attribute.String("thread.id", x.resolved.ThreadID))
	}

	result := &Result{
		RunID:      runID,
		TraceID:    telemetry.TraceID(ctx),
		SessionID:  x.session,
		Resolution: x.resolved,
	}
	ereq := engine.Request{Question: question, ThreadID: x.resolved.ThreadID}

	if req.Streaming {
		result.Stream = newStream(ctx, x, ereq)
		return result, nil
	}

	defer span.End()

	invokeStart := time.Now()
	reply, err := c.engine.Respond(ctx, ereq)
	span.SetAttributes(attribute.Int64("get_response_ms", telemetry.Since(invokeStart)))
	if err != nil {
		err = fmt.Errorf("engine: %w", err)
		x.fail(ctx, err)
		return nil, err
	}

	answer := engine.Coerce(reply.Content)
	x.reconcile(ctx, reply.ThreadID)
	x.complete(ctx, reply.ThreadID, len(answer))

	result.Reply = &Reply{Answer: answer, ThreadID: reply.ThreadID}
	return result, nil
}

func (x *exchange) loadSession(ctx context.Context, sessionID string) error {
	if sessionID != "" {
		x.session = sessionID
		return nil
	}

	x.cli = true
	if x.c.fallback == nil {
		if x.reuse {
			return ErrNoSession
		}
		return nil
	}

	id, err := x.c.fallback.LoadOrCreateSession(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	x.session = id
	return nil
}

func (x *exchange) resolve(ctx context.Context, explicit string) {
	switch {
	case explicit != "":
		x.resolved = Resolution{ThreadID: explicit, Source: SourceExplicit}
	case !x.reuse:
		x.resolved = Resolution{Source: SourceNone}
	default:
		start := time.Now()
		x.resolved = x.chain().Resolve(ctx, x.session, x.obs)
		if x.resolved.Source == SourceDirectory {
			x.known = x.resolved.ThreadID
		}
		x.emit(ctx, EventResolve, telemetry.LevelInfo, map[string]any{
			"source":     x.resolved.Source,
			"thread_id":  x.resolved.ThreadID,
			"elapsed_ms": telemetry.Since(start),
		})
		return
	}

	x.emit(ctx, EventResolve, telemetry.LevelVerbose, map[string]any{
		"source":    x.resolved.Source,
		"thread_id": x.resolved.ThreadID,
	})
}

func (x *exchange) chain() Chain {
	var chain Chain
	if x.c.directory != nil && x.session != "" {
		chain = append(chain, DirectorySource{Directory: x.c.directory})
	}
	if x.cli && x.c.fallback != nil {
		chain = append(chain, FallbackSource{Fallback: x.c.fallback})
	}
	return chain
}

// reconcile records the engine's thread id. The directory is written only
// when the id differs from what it held before the call; in CLI context the
// fallback slot is always refreshed. Failures are reported, never returned.
func (x *exchange) reconcile(ctx context.Context, threadID string) {
	x.span.SetAttributes(attribute.String("thread.id", threadID))
	if !x.reuse || threadID == "" {
		return
	}

	start := time.Now()
	var fallbackWritten, directoryWritten bool

	if x.cli && x.c.fallback != nil {
		if err := x.c.fallback.SaveThread(ctx, threadID); err != nil {
			x.persistError(ctx, SourceFallback, threadID, err)
		} else {
			fallbackWritten = true
		}
	}

	if x.c.directory != nil && x.session != "" && threadID != x.known {
		if err := x.c.directory.Upsert(ctx, x.session, threadID); err != nil {
			x.persistError(ctx, SourceDirectory, threadID, err)
		} else {
			directoryWritten = true
		}
	}

	x.emit(ctx, EventPersist, telemetry.LevelInfo, map[string]any{
		"thread_id":         threadID,
		"session_id":        x.session,
		"directory_written": directoryWritten,
		"fallback_written":  fallbackWritten,
		"unchanged":         threadID == x.known,
		"elapsed_ms":        telemetry.Since(start),
	})
}

func (x *exchange) persistError(ctx context.Context, tier, threadID string, err error) {
	x.span.RecordError(err, trace.WithAttributes(attribute.String("persist.tier", tier)))
	x.emit(ctx, EventPersistError, telemetry.LevelError, map[string]any{
		"tier":       tier,
		"thread_id":  threadID,
		"session_id": x.session,
		"error":      err.Error(),
	})
}

func (x *exchange) complete(ctx context.Context, threadID string, answerLen int) {
	elapsed := telemetry.Since(x.start)
	x.span.SetAttributes(attribute.Int64("agent.elapsed_ms", elapsed))
	x.emit(ctx, EventComplete, telemetry.LevelInfo, map[string]any{
		"thread_id":  threadID,
		"answer_len": answerLen,
		"elapsed_ms": elapsed,
	})
}
