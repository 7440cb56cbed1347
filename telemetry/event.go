// Package telemetry carries structured events and traces for the assistant.
//
// Subsystems describe what happened as an Event and hand it to an Observer.
// Observers decide where it goes: a slog handler, the active OpenTelemetry
// span, or a per-connection debug stream. Level values follow OpenTelemetry
// SeverityNumber ranges so events cross those boundaries without mapping
// tables.
package telemetry

import (
	"context"
	"log/slog"
	"time"
)

// Level is event severity on the OpenTelemetry SeverityNumber scale.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8)
	LevelInfo    Level = 9  // OTel INFO (9-12)
	LevelWarning Level = 13 // OTel WARN (13-16)
	LevelError   Level = 17 // OTel ERROR (17-20)
)

// String returns the OTel severity text for the level.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel maps the level onto slog's four levels.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType names an event. Packages declare their own constants
// ("coordinator.resolve", "directory.get.miss", ...).
type EventType string

// Event is one observation emitted by a subsystem. Type becomes the log
// message or span event name, Source the emitting operation, and Data the
// attributes.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// NewEvent stamps an event with the current time.
func NewEvent(typ EventType, level Level, source string, data map[string]any) Event {
	return Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	}
}

// Observer receives events. Implementations must be safe for concurrent use;
// one Observer is shared by every session served by the process.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) {
	f(ctx, event)
}

// Since returns the whole milliseconds elapsed since start. Every timing
// attribute in the assistant is reported with it.
func Since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
