// Package localstate is the fallback tier for thread continuity: two
// single-value slots on local disk holding the CLI's session id and the
// last thread id it used. The durable directory always wins when it
// answers; these slots only matter when it does not.
package localstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/hrassist/store"
)

// Slot keys under the state root.
const (
	SessionKey = "session_id.txt"
	ThreadKey  = "thread_id.txt"
)

// SessionPrefix begins every generated session id.
const SessionPrefix = "session_"

// State reads and writes the fallback slots. Safe for concurrent use.
type State struct {
	kv store.Store

	mu      sync.Mutex
	session string
}

// New wraps a store. Slots live at the store's root.
func New(kv store.Store) *State {
	return &State{kv: kv}
}

// Open returns a State persisted as plain files under dir.
func Open(dir string) *State {
	return New(store.NewFileStore(dir))
}

// NewSessionID returns "session_" followed by 32 lowercase hex characters.
func NewSessionID() string {
	id := uuid.New()
	return SessionPrefix + strings.ReplaceAll(id.String(), "-", "")
}

// LoadOrCreateSession returns the persisted session id, creating and
// storing one on first use. Repeated calls return the same value.
func (s *State) LoadOrCreateSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != "" {
		return s.session, nil
	}

	existing, err := s.read(ctx, SessionKey)
	if err != nil {
		return "", err
	}
	if existing != "" {
		s.session = existing
		return existing, nil
	}

	id := NewSessionID()
	if err := s.kv.Put(ctx, SessionKey, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to save session id: %w", err)
	}
	s.session = id
	return id, nil
}

// LoadThread returns the last saved thread id, or "" when none is stored.
func (s *State) LoadThread(ctx context.Context) (string, error) {
	return s.read(ctx, ThreadKey)
}

// SaveThread overwrites the thread slot. An empty id is ignored.
func (s *State) SaveThread(ctx context.Context, threadID string) error {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return nil
	}
	if err := s.kv.Put(ctx, ThreadKey, []byte(threadID)); err != nil {
		return fmt.Errorf("failed to save thread id: %w", err)
	}
	return nil
}

func (s *State) read(ctx context.Context, key string) (string, error) {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
