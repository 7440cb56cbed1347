// Package conversation holds the answering engine's thread histories: the
// message types exchanged with the model and a Store that persists each
// thread by id.
package conversation

import (
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ThreadPrefix begins every generated thread id.
const ThreadPrefix = "thread_"

// NewID returns "thread_" followed by 32 hex characters of a UUIDv7, so
// ids sort by creation time.
func NewID() string {
	return ThreadPrefix + strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
}

// Thread is an ordered conversation history. Safe for concurrent use.
type Thread struct {
	id        string
	createdAt time.Time

	mu       sync.RWMutex
	messages []Message
}

// NewThread starts an empty thread with a fresh id.
func NewThread() *Thread {
	return &Thread{id: NewID(), createdAt: time.Now().UTC()}
}

// ID returns the thread id.
func (t *Thread) ID() string { return t.id }

// CreatedAt returns when the thread was started.
func (t *Thread) CreatedAt() time.Time { return t.createdAt }

// Append adds messages to the end of the history.
func (t *Thread) Append(msgs ...Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msgs...)
}

// Messages returns a defensive copy of the history.
func (t *Thread) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	copied := make([]Message, len(t.messages))
	for i, msg := range t.messages {
		copied[i] = msg
		copied[i].ToolCalls = slices.Clone(msg.ToolCalls)
	}
	return copied
}

// Len returns the number of messages.
func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

type threadJSON struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

func (t *Thread) MarshalJSON() ([]byte, error) {
	return json.Marshal(threadJSON{
		ID:        t.id,
		CreatedAt: t.createdAt,
		Messages:  t.Messages(),
	})
}

func (t *Thread) UnmarshalJSON(data []byte) error {
	var v threadJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.id = v.ID
	t.createdAt = v.CreatedAt
	t.messages = v.Messages
	return nil
}
