// Package store is the small key-value persistence layer shared by the local
// state slots and the engine's thread histories. Keys are /-separated paths.
package store

import (
	"context"
	"errors"
)

// Sentinel errors for store operations.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrReadFailed  = errors.New("read failed")
	ErrWriteFailed = errors.New("write failed")
)

// Store persists opaque values by key. Implementations do no caching and are
// safe for concurrent use.
type Store interface {
	// Get returns the value for key or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put creates or overwrites key. A reader never observes a partial value.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Missing keys are ignored.
	Delete(ctx context.Context, key string) error
	// Keys lists stored keys that start with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
