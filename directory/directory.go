// Package directory is the durable, per-session thread directory: the
// authoritative record of which conversation thread a session is in.
//
// A session maps to at most one current thread. Writes are upserts keyed by
// session id and the last write wins. Three backends share the Directory
// interface: an in-process map, a local sqlite file, and Azure Cosmos DB.
package directory

import (
	"context"
	"errors"
)

// Sentinel errors for directory operations.
var (
	// ErrNotFound reports a confirmed miss: the backend answered and holds
	// no thread for the session. Any other Get error means unreachable.
	ErrNotFound = errors.New("thread not found for session")

	ErrEmptySession   = errors.New("session id is empty")
	ErrEmptyThread    = errors.New("thread id is empty")
	ErrUnknownBackend = errors.New("unknown directory backend")
)

// Record is the stored document. ID equals SessionID so a lookup is a
// point read.
type Record struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	ThreadID  string `json:"thread_id"`
}

// NewRecord builds the document for a session/thread pair.
func NewRecord(sessionID, threadID string) Record {
	return Record{ID: sessionID, SessionID: sessionID, ThreadID: threadID}
}

// Directory maps session ids to their current thread id.
// Implementations must be safe for concurrent use.
type Directory interface {
	// Get returns the current thread id for the session, ErrNotFound when
	// none is recorded, or another error when the backend is unreachable.
	Get(ctx context.Context, sessionID string) (string, error)
	// Upsert records threadID as the session's current thread.
	Upsert(ctx context.Context, sessionID, threadID string) error
	// Close releases backend resources.
	Close() error
}

func validate(sessionID, threadID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	if threadID == "" {
		return ErrEmptyThread
	}
	return nil
}
