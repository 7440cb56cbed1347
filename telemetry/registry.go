package telemetry

import (
	"errors"
	"fmt"
	"log/slog"
)

// Observer names accepted in Config.Observers.
const (
	ObserverNoop = "noop"
	ObserverSlog = "slog"
	ObserverSpan = "span"
)

// ErrUnknownObserver is returned by Resolve for a name it does not know.
var ErrUnknownObserver = errors.New("unknown observer")

// Resolve builds the process observer from Config.Observers. "slog" writes
// to logger (slog.Default when nil) and "span" records on the active span.
// Repeated names are used once, and a list that resolves to nothing yields
// a NoOpObserver.
func Resolve(names []string, logger *slog.Logger) (Observer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]bool, len(names))
	resolved := make([]Observer, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case ObserverNoop:
		case ObserverSlog:
			resolved = append(resolved, NewSlogObserver(logger))
		case ObserverSpan:
			resolved = append(resolved, SpanObserver{})
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownObserver, name)
		}
	}

	switch len(resolved) {
	case 0:
		return NoOpObserver{}, nil
	case 1:
		return resolved[0], nil
	default:
		return NewMultiObserver(resolved...), nil
	}
}
