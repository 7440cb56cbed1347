package coordinator_test

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tailored-agentic-units/hrassist/directory"
	"github.com/tailored-agentic-units/hrassist/engine"
	"github.com/tailored-agentic-units/hrassist/telemetry"
)

// fakeEngine answers every request with the same fragments and thread id.
type fakeEngine struct {
	fragments []string
	content   engine.Content // overrides the joined fragments for Respond
	threadID  string
	noFinal   bool
	err       error

	mu         sync.Mutex
	requests   []engine.Request
	streamCtxs []context.Context
	streams    atomic.Int32
}

func (e *fakeEngine) record(req engine.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
}

func (e *fakeEngine) lastRequest() engine.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.requests) == 0 {
		return engine.Request{}
	}
	return e.requests[len(e.requests)-1]
}

func (e *fakeEngine) Respond(_ context.Context, req engine.Request) (*engine.Reply, error) {
	e.record(req)
	if e.err != nil {
		return nil, e.err
	}
	content := e.content
	if content == nil {
		content = engine.Text(strings.Join(e.fragments, ""))
	}
	return &engine.Reply{Content: content, ThreadID: e.threadID}, nil
}

func (e *fakeEngine) Stream(ctx context.Context, req engine.Request) iter.Seq2[engine.Delta, error] {
	return func(yield func(engine.Delta, error) bool) {
		e.streams.Add(1)
		e.record(req)
		e.mu.Lock()
		e.streamCtxs = append(e.streamCtxs, ctx)
		e.mu.Unlock()

		if e.err != nil {
			yield(engine.Delta{}, e.err)
			return
		}
		for _, f := range e.fragments {
			if !yield(engine.Delta{Content: engine.Text(f)}, nil) {
				return
			}
		}
		if e.noFinal {
			return
		}
		yield(engine.Delta{Final: true, ThreadID: e.threadID}, nil)
	}
}

var errUnreachable = errors.New("cosmos: connection refused")

// countingDirectory wraps the memory directory and counts calls.
type countingDirectory struct {
	directory.Directory
	gets, upserts atomic.Int32
	getErr        error
	upsertErr     error
}

func newDirectory() *countingDirectory {
	return &countingDirectory{Directory: directory.NewMemory()}
}

func (d *countingDirectory) Get(ctx context.Context, sessionID string) (string, error) {
	d.gets.Add(1)
	if d.getErr != nil {
		return "", d.getErr
	}
	return d.Directory.Get(ctx, sessionID)
}

func (d *countingDirectory) Upsert(ctx context.Context, sessionID, threadID string) error {
	d.upserts.Add(1)
	if d.upsertErr != nil {
		return d.upsertErr
	}
	return d.Directory.Upsert(ctx, sessionID, threadID)
}

func (d *countingDirectory) current(sessionID string) string {
	id, _ := d.Directory.Get(context.Background(), sessionID)
	return id
}

// fakeFallback is an in-memory Fallback that counts calls.
type fakeFallback struct {
	mu        sync.Mutex
	sessionID string
	threadID  string
	loads     int
	saves     int
	saveErr   error
}

func (f *fakeFallback) LoadOrCreateSession(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionID == "" {
		f.sessionID = "session_local"
	}
	return f.sessionID, nil
}

func (f *fakeFallback) LoadThread(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.threadID, nil
}

func (f *fakeFallback) SaveThread(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	if id != "" {
		f.threadID = id
	}
	return nil
}

type captureObserver struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (c *captureObserver) OnEvent(_ context.Context, e telemetry.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureObserver) find(typ telemetry.EventType) []telemetry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []telemetry.Event
	for _, e := range c.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
