package directory

import (
	"context"
	"fmt"
	"sync"
)

type memoryDirectory struct {
	records map[string]Record
	mu      sync.RWMutex
}

// NewMemory creates a process-local Directory.
func NewMemory() Directory {
	return &memoryDirectory{records: make(map[string]Record)}
}

func (d *memoryDirectory) Get(_ context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrEmptySession
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.records[sessionID]
	if !ok || rec.ThreadID == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return rec.ThreadID, nil
}

func (d *memoryDirectory) Upsert(_ context.Context, sessionID, threadID string) error {
	if err := validate(sessionID, threadID); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.records[sessionID] = NewRecord(sessionID, threadID)
	return nil
}

func (d *memoryDirectory) Close() error { return nil }
