package coordinator

import "errors"

// Sentinel errors returned by the coordinator.
var (
	ErrEmptyQuestion  = errors.New("question is empty")
	ErrStreamConsumed = errors.New("stream already consumed")
	// ErrNoSession is returned when a request carries no session id and no
	// fallback store is configured to supply one.
	ErrNoSession = errors.New("no session id and no fallback store")
)
