package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/tailored-agentic-units/hrassist/directory"
	"github.com/tailored-agentic-units/hrassist/telemetry"
)

// Source names reported in Resolution.Source.
const (
	SourceDirectory = "directory"
	SourceFallback  = "fallback"
	SourceExplicit  = "explicit"
	SourceNone      = ""
)

// Source is one tier of the thread lookup chain. Lookup returns "" with a
// nil error for a clean miss; an error means the tier could not answer.
type Source interface {
	Name() string
	Lookup(ctx context.Context, sessionID string) (string, error)
}

// Chain consults sources in order and stops at the first that returns a
// thread id. Errors are treated as misses.
type Chain []Source

// Resolution is the outcome of a chain lookup.
type Resolution struct {
	ThreadID string
	Source   string
}

// Resolve walks the chain. Each attempt is reported to obs as a
// coordinator.lookup event.
func (c Chain) Resolve(ctx context.Context, sessionID string, obs telemetry.Observer) Resolution {
	for _, src := range c {
		start := time.Now()
		threadID, err := src.Lookup(ctx, sessionID)

		data := map[string]any{
			"source":     src.Name(),
			"session_id": sessionID,
			"hit":        err == nil && threadID != "",
			"elapsed_ms": telemetry.Since(start),
		}
		level := telemetry.LevelVerbose
		if err != nil {
			data["error"] = err.Error()
			level = telemetry.LevelWarning
		}
		if threadID != "" {
			data["thread_id"] = threadID
		}
		obs.OnEvent(ctx, telemetry.NewEvent(EventLookup, level, "coordinator.Resolve", data))

		if err == nil && threadID != "" {
			return Resolution{ThreadID: threadID, Source: src.Name()}
		}
	}
	return Resolution{Source: SourceNone}
}

// DirectorySource looks threads up in the durable directory. A confirmed
// miss is a clean miss; anything else is reported as unreachable.
type DirectorySource struct {
	Directory directory.Directory
}

func (DirectorySource) Name() string { return SourceDirectory }

func (s DirectorySource) Lookup(ctx context.Context, sessionID string) (string, error) {
	threadID, err := s.Directory.Get(ctx, sessionID)
	if errors.Is(err, directory.ErrNotFound) {
		return "", nil
	}
	return threadID, err
}

// FallbackSource reads the local thread slot.
type FallbackSource struct {
	Fallback Fallback
}

func (FallbackSource) Name() string { return SourceFallback }

func (s FallbackSource) Lookup(ctx context.Context, _ string) (string, error) {
	return s.Fallback.LoadThread(ctx)
}
