package assistant_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/tailored-agentic-units/hrassist/assistant"
	"github.com/tailored-agentic-units/hrassist/conversation"
	"github.com/tailored-agentic-units/hrassist/coordinator"
	"github.com/tailored-agentic-units/hrassist/directory"
	"github.com/tailored-agentic-units/hrassist/engine"
	"github.com/tailored-agentic-units/hrassist/search"
	"github.com/tailored-agentic-units/hrassist/store"
	"github.com/tailored-agentic-units/hrassist/telemetry"
)

const answer = "Parental leave is 12 weeks (leave.pdf, leave-1)."

// policyModel searches once per question and then answers from the result.
type policyModel struct{}

func (policyModel) turn(msgs []conversation.Message) *engine.Completion {
	if last := msgs[len(msgs)-1]; last.Role == conversation.RoleTool {
		return &engine.Completion{Content: answer}
	}
	return &engine.Completion{ToolCalls: []conversation.ToolCall{{
		ID: "call_1", Name: search.ToolName, Arguments: `{"query":"parental leave"}`,
	}}}
}

func (m policyModel) Complete(_ context.Context, msgs []conversation.Message, _ []conversation.Tool) (*engine.Completion, error) {
	return m.turn(msgs), nil
}

func (m policyModel) Stream(_ context.Context, msgs []conversation.Message, _ []conversation.Tool) iter.Seq2[engine.ModelDelta, error] {
	c := m.turn(msgs)
	return func(yield func(engine.ModelDelta, error) bool) {
		for _, word := range strings.SplitAfter(c.Content, " ") {
			if word == "" {
				continue
			}
			if !yield(engine.ModelDelta{Text: word}, nil) {
				return
			}
		}
		yield(engine.ModelDelta{Done: true, ToolCalls: c.ToolCalls}, nil)
	}
}

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
}

func (s *fakeSearcher) Search(_ context.Context, query string, top int) ([]search.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	return []search.Chunk{{ChunkID: "leave-1", File: "leave.pdf", Chunk: "Employees receive 12 weeks."}}, nil
}

func testConfig(t *testing.T) *assistant.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := assistant.DefaultConfig()
	cfg.State.Root = filepath.Join(dir, ".state")
	cfg.Directory.Path = filepath.Join(dir, ".state", "directory.db")
	cfg.Search.Path = filepath.Join(dir, "hr_policies.db")
	cfg.Telemetry.Observers = []string{"slog", "span"}
	return &cfg
}

func newApp(t *testing.T, cfg *assistant.Config, opts ...assistant.Option) *assistant.App {
	t.Helper()
	base := []assistant.Option{
		assistant.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		assistant.WithChatModel(policyModel{}),
	}
	app, err := assistant.New(context.Background(), cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { app.Close(context.Background()) })
	return app
}

func TestNew_CLIExchangeContinuesThread(t *testing.T) {
	searcher := &fakeSearcher{}
	app := newApp(t, testConfig(t), assistant.WithSearcher(searcher))
	ctx := context.Background()

	first, err := app.Coordinator.Converse(ctx, coordinator.Request{Question: "How long is parental leave?", ReuseThread: true})
	if err != nil {
		t.Fatalf("Converse() error = %v", err)
	}
	reply, err := first.Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if reply.Answer != answer {
		t.Errorf("Answer = %q, want %q", reply.Answer, answer)
	}
	if !strings.HasPrefix(first.SessionID, "session_") {
		t.Errorf("SessionID = %q, want session_ prefix", first.SessionID)
	}
	if len(first.TraceID) != 32 {
		t.Errorf("TraceID = %q, want 32 hex", first.TraceID)
	}

	if got, _ := app.State.LoadThread(ctx); got != reply.ThreadID {
		t.Errorf("fallback thread = %q, want %q", got, reply.ThreadID)
	}
	if got, _ := app.Directory.Get(ctx, first.SessionID); got != reply.ThreadID {
		t.Errorf("directory thread = %q, want %q", got, reply.ThreadID)
	}

	second, err := app.Coordinator.Converse(ctx, coordinator.Request{Question: "And for adoption?", ReuseThread: true, Streaming: true})
	if err != nil {
		t.Fatalf("second Converse() error = %v", err)
	}
	streamed, err := second.Collect()
	if err != nil {
		t.Fatalf("second Collect() error = %v", err)
	}
	if second.Resolution.Source != coordinator.SourceDirectory {
		t.Errorf("second Resolution.Source = %q, want directory", second.Resolution.Source)
	}
	if streamed.ThreadID != reply.ThreadID || streamed.Answer != answer {
		t.Errorf("streamed reply = %+v, want same thread and answer", streamed)
	}

	thread, err := app.Threads.Load(ctx, reply.ThreadID)
	if err != nil {
		t.Fatalf("Threads.Load() error = %v", err)
	}
	// two exchanges of user, assistant(tool call), tool, assistant
	if thread.Len() != 8 {
		t.Errorf("thread holds %d messages, want 8", thread.Len())
	}
	if len(searcher.queries) != 2 {
		t.Errorf("searcher queried %d times, want 2", len(searcher.queries))
	}
}

func TestNew_UnavailableDirectoryFallsBackLocally(t *testing.T) {
	cfg := testConfig(t)
	cfg.Directory.Backend = directory.BackendCosmos // no endpoint configured

	app := newApp(t, cfg, assistant.WithSearcher(&fakeSearcher{}))
	if app.Directory != nil {
		t.Fatal("Directory set for an unopenable backend")
	}

	ctx := context.Background()
	res, err := app.Coordinator.Converse(ctx, coordinator.Request{Question: "q", ReuseThread: true})
	if err != nil {
		t.Fatalf("Converse() error = %v", err)
	}
	first, _ := res.Collect()

	res, err = app.Coordinator.Converse(ctx, coordinator.Request{Question: "q2", ReuseThread: true})
	if err != nil {
		t.Fatalf("second Converse() error = %v", err)
	}
	second, _ := res.Collect()

	if res.Resolution.Source != coordinator.SourceFallback || second.ThreadID != first.ThreadID {
		t.Errorf("second exchange resolved %+v, want fallback %q", res.Resolution, first.ThreadID)
	}
}

func TestNew_OpensPolicyIndex(t *testing.T) {
	cfg := testConfig(t)
	app := newApp(t, cfg)

	if _, ok := app.Searcher.(*search.Index); !ok {
		t.Errorf("Searcher = %T, want *search.Index", app.Searcher)
	}
	if _, ok := app.Tools.Get(search.ToolName); !ok {
		t.Errorf("tool %s not registered", search.ToolName)
	}
}

func TestNew_EngineOverride(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.Model.Deployment = ""

	eng := engine.NewAgent(policyModel{}, conversation.NewStore(store.NewMemStore()))
	app, err := assistant.New(context.Background(), cfg,
		assistant.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		assistant.WithEngine(eng),
		assistant.WithSearcher(&fakeSearcher{}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close(context.Background())

	if app.Engine != engine.Engine(eng) {
		t.Error("WithEngine override not applied")
	}
}

func TestNew_MissingModelConfig(t *testing.T) {
	cfg := testConfig(t)
	_, err := assistant.New(context.Background(), cfg,
		assistant.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		assistant.WithSearcher(&fakeSearcher{}),
	)
	if err == nil {
		t.Fatal("New() without a deployment error = nil")
	}
}

func TestNew_UnknownObserver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.Observers = []string{"carrier-pigeon"}

	_, err := assistant.New(context.Background(), cfg, assistant.WithChatModel(policyModel{}), assistant.WithSearcher(&fakeSearcher{}))
	if !errors.Is(err, telemetry.ErrUnknownObserver) {
		t.Fatalf("New() with unknown observer error = %v, want %v", err, telemetry.ErrUnknownObserver)
	}
}

func TestNew_ObserverLogsToOwnLogger(t *testing.T) {
	var first, second bytes.Buffer
	a := newApp(t, testConfig(t), assistant.WithSearcher(&fakeSearcher{}),
		assistant.WithLogger(slog.New(slog.NewTextHandler(&first, nil))))
	newApp(t, testConfig(t), assistant.WithSearcher(&fakeSearcher{}),
		assistant.WithLogger(slog.New(slog.NewTextHandler(&second, nil))))

	a.Observer.OnEvent(context.Background(), telemetry.NewEvent("coordinator.persist", telemetry.LevelInfo, "test", nil))

	if !strings.Contains(first.String(), "coordinator.persist") {
		t.Errorf("first app logger = %q, want the event", first.String())
	}
	if strings.Contains(second.String(), "coordinator.persist") {
		t.Errorf("second app logger received the first app's event: %q", second.String())
	}
}
