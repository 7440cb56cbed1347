package directory

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/hrassist/telemetry"
)

// Directory event types.
const (
	EventGetHit         telemetry.EventType = "directory.get.hit"
	EventGetMiss        telemetry.EventType = "directory.get.miss"
	EventGetUnreachable telemetry.EventType = "directory.get.unreachable"
	EventUpsert         telemetry.EventType = "directory.upsert"
	EventUpsertError    telemetry.EventType = "directory.upsert.error"
)

// Option configures an Instrumented directory.
type Option func(*Instrumented)

// WithObserver sets the event observer. Defaults to NoOpObserver.
func WithObserver(o telemetry.Observer) Option {
	return func(d *Instrumented) { d.observer = o }
}

// WithTracer sets the tracer. Defaults to the global provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(d *Instrumented) { d.tracer = t }
}

// Instrumented wraps a Directory with spans and timing events. Errors pass
// through unchanged.
type Instrumented struct {
	next     Directory
	observer telemetry.Observer
	tracer   trace.Tracer
}

// Instrument wraps next.
func Instrument(next Directory, opts ...Option) *Instrumented {
	d := &Instrumented{
		next:     next,
		observer: telemetry.NoOpObserver{},
		tracer:   otel.Tracer("hrassist/directory"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Instrumented) Get(ctx context.Context, sessionID string) (string, error) {
	ctx, span := d.tracer.Start(ctx, "directory.get_thread_id",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	start := time.Now()
	threadID, err := d.next.Get(ctx, sessionID)
	elapsed := telemetry.Since(start)
	span.SetAttributes(attribute.Int64("directory.get_ms", elapsed))

	data := map[string]any{
		"session_id": sessionID,
		"elapsed_ms": elapsed,
	}

	switch {
	case err == nil:
		span.SetAttributes(
			attribute.Bool("directory.hit", true),
			attribute.String("thread.id", threadID),
		)
		data["thread_id"] = threadID
		d.observer.OnEvent(ctx, telemetry.NewEvent(EventGetHit, telemetry.LevelInfo, "directory.Get", data))
	case errors.Is(err, ErrNotFound):
		span.SetAttributes(attribute.Bool("directory.hit", false))
		d.observer.OnEvent(ctx, telemetry.NewEvent(EventGetMiss, telemetry.LevelInfo, "directory.Get", data))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		data["error"] = err.Error()
		d.observer.OnEvent(ctx, telemetry.NewEvent(EventGetUnreachable, telemetry.LevelWarning, "directory.Get", data))
	}

	return threadID, err
}

func (d *Instrumented) Upsert(ctx context.Context, sessionID, threadID string) error {
	ctx, span := d.tracer.Start(ctx, "directory.upsert_thread_id",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("thread.id", threadID),
		),
	)
	defer span.End()

	start := time.Now()
	err := d.next.Upsert(ctx, sessionID, threadID)
	elapsed := telemetry.Since(start)
	span.SetAttributes(attribute.Int64("directory.upsert_ms", elapsed))

	data := map[string]any{
		"session_id": sessionID,
		"thread_id":  threadID,
		"elapsed_ms": elapsed,
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		data["error"] = err.Error()
		d.observer.OnEvent(ctx, telemetry.NewEvent(EventUpsertError, telemetry.LevelError, "directory.Upsert", data))
		return err
	}

	d.observer.OnEvent(ctx, telemetry.NewEvent(EventUpsert, telemetry.LevelInfo, "directory.Upsert", data))
	return nil
}

func (d *Instrumented) Close() error {
	return d.next.Close()
}
