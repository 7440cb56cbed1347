// Package engine answers questions within a conversation thread.
//
// Engine is the boundary the coordinator talks to: a question plus an
// optional thread id in, an answer plus the definitive thread id out, either
// whole (Respond) or as a stream of fragments closed by one terminal Delta
// (Stream). Agent is the implementation: a tool-calling loop over a chat
// model with the policy search tool and thread histories kept in a
// conversation.Store.
package engine

import (
	"context"
	"errors"
	"iter"
)

// Sentinel errors returned by engines.
var (
	// ErrThreadNotFound is returned when a supplied thread id is unknown.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrMaxIterations is returned when the tool loop exhausts its budget
	// without a final answer.
	ErrMaxIterations = errors.New("max iterations reached")
	// ErrEmptyResponse is returned when the model produced no choice.
	ErrEmptyResponse = errors.New("model returned empty response")
)

// Request is one question, optionally continuing an existing thread.
type Request struct {
	Question string
	ThreadID string // empty starts a new thread
}

// Reply is a completed answer and the thread it was recorded in.
type Reply struct {
	Content  Content
	ThreadID string
}

// Delta is one streamed item. Non-final deltas carry a content fragment; the
// single Final delta carries the thread id and no content.
type Delta struct {
	Content  Content
	Final    bool
	ThreadID string
}

// Engine answers questions. Implementations must be safe for concurrent use.
type Engine interface {
	// Respond blocks until the whole answer is available.
	Respond(ctx context.Context, req Request) (*Reply, error)
	// Stream yields content fragments as they arrive followed by exactly one
	// Final delta. A non-nil error ends the sequence. Stopping iteration
	// early abandons the exchange.
	Stream(ctx context.Context, req Request) iter.Seq2[Delta, error]
}
