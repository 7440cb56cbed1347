package telemetry

import "context"

// MultiObserver fans events out to several observers in order.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver over the non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}

// Join combines a base observer with an optional per-call one. It avoids
// allocating a MultiObserver when extra is nil.
func Join(base, extra Observer) Observer {
	switch {
	case extra == nil && base == nil:
		return NoOpObserver{}
	case extra == nil:
		return base
	case base == nil:
		return extra
	default:
		return NewMultiObserver(base, extra)
	}
}

// NoOpObserver discards all events.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}
