package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/hrassist/store"
)

// ErrNotFound is returned when no thread exists for an id.
var ErrNotFound = errors.New("thread not found")

const threadsPrefix = "threads/"

// Store persists threads as JSON documents at threads/<id>.json.
type Store struct {
	kv store.Store
}

// NewStore creates a thread Store on top of kv.
func NewStore(kv store.Store) *Store {
	return &Store{kv: kv}
}

func threadKey(id string) string {
	return threadsPrefix + id + ".json"
}

// Load reads a thread by id.
func (s *Store) Load(ctx context.Context, id string) (*Thread, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	data, err := s.kv.Get(ctx, threadKey(id))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load thread %s: %w", id, err)
	}

	t := &Thread{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to decode thread %s: %w", id, err)
	}
	return t, nil
}

// Save writes the thread, replacing any previous version.
func (s *Store) Save(ctx context.Context, t *Thread) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode thread %s: %w", t.ID(), err)
	}
	if err := s.kv.Put(ctx, threadKey(t.ID()), data); err != nil {
		return fmt.Errorf("failed to save thread %s: %w", t.ID(), err)
	}
	return nil
}
