// Package assistant composes the HR policy assistant from configuration.
//
// New builds every shared resource exactly once (tracer provider, durable
// directory, fallback state, thread store, policy index, chat model, agent
// and coordinator) and returns them on an App. Transports borrow the App's
// Coordinator; the process calls Close once on shutdown.
//
//	cfg := assistant.DefaultConfig()
//	cfg.Merge(assistant.ConfigFromEnv())
//	app, err := assistant.New(ctx, &cfg)
//	defer app.Close(ctx)
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/hrassist/conversation"
	"github.com/tailored-agentic-units/hrassist/coordinator"
	"github.com/tailored-agentic-units/hrassist/directory"
	"github.com/tailored-agentic-units/hrassist/engine"
	"github.com/tailored-agentic-units/hrassist/localstate"
	"github.com/tailored-agentic-units/hrassist/search"
	"github.com/tailored-agentic-units/hrassist/store"
	"github.com/tailored-agentic-units/hrassist/telemetry"
	"github.com/tailored-agentic-units/hrassist/tools"
)

// Option configures an App after config-driven initialization. Overrides
// replace the resources New would otherwise create.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	engine    engine.Engine
	model     engine.ChatModel
	directory directory.Directory
	searcher  search.Searcher
	state     store.Store
}

// WithLogger sets the process logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEngine replaces the agent entirely.
func WithEngine(e engine.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithChatModel replaces the configured OpenAI model under the agent.
func WithChatModel(m engine.ChatModel) Option {
	return func(o *options) { o.model = m }
}

// WithDirectory replaces the configured directory backend. It is still
// instrumented.
func WithDirectory(d directory.Directory) Option {
	return func(o *options) { o.directory = d }
}

// WithSearcher replaces the sqlite policy index.
func WithSearcher(s search.Searcher) Option {
	return func(o *options) { o.searcher = s }
}

// WithStateStore replaces the store behind local state and thread histories.
func WithStateStore(s store.Store) Option {
	return func(o *options) { o.state = s }
}

// App owns the assistant's shared resources.
type App struct {
	Config      *Config
	Logger      *slog.Logger
	Observer    telemetry.Observer
	Tracer      trace.Tracer
	State       *localstate.State
	Directory   directory.Directory // nil when no backend could be opened
	Threads     *conversation.Store
	Searcher    search.Searcher
	Tools       *tools.Registry
	Engine      engine.Engine
	Coordinator *coordinator.Coordinator

	provider *telemetry.Provider
	closers  []func() error
}

// New creates an App from configuration. A directory backend that cannot be
// opened is logged and left out: the coordinator then resolves threads from
// the fallback tier only.
func New(ctx context.Context, cfg *Config, opts ...Option) (*App, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	provider, err := telemetry.Setup(ctx, &cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	observer, err := telemetry.Resolve(cfg.Telemetry.Observers, o.logger)
	if err != nil {
		provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to resolve observers: %w", err)
	}

	app := &App{
		Config:   cfg,
		Logger:   o.logger,
		Observer: observer,
		Tracer:   provider.Tracer("hrassist"),
		provider: provider,
	}

	kv := o.state
	if kv == nil {
		kv = store.New(&cfg.State)
	}
	app.State = localstate.New(kv)
	app.Threads = conversation.NewStore(kv)

	app.Directory = app.openDirectory(o.directory)

	if err := app.openSearcher(o.searcher); err != nil {
		app.Close(ctx)
		return nil, err
	}

	app.Tools = tools.NewRegistry()
	if err := search.RegisterTool(app.Tools, app.Searcher, cfg.Search.Top); err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("failed to register search tool: %w", err)
	}

	if err := app.buildEngine(o); err != nil {
		app.Close(ctx)
		return nil, err
	}

	copts := []coordinator.Option{
		coordinator.WithFallback(app.State),
		coordinator.WithObserver(observer),
		coordinator.WithTracer(app.Tracer),
		coordinator.WithAgentID(cfg.Engine.AgentID),
	}
	if app.Directory != nil {
		copts = append(copts, coordinator.WithDirectory(app.Directory))
	}
	app.Coordinator = coordinator.New(app.Engine, copts...)

	return app, nil
}

func (a *App) openDirectory(override directory.Directory) directory.Directory {
	d := override
	if d == nil {
		var err error
		d, err = directory.New(&a.Config.Directory)
		if err != nil {
			a.Logger.Warn("thread directory unavailable, using local fallback only",
				"backend", a.Config.Directory.Backend,
				"error", err)
			return nil
		}
	}
	a.closers = append(a.closers, d.Close)
	return directory.Instrument(d,
		directory.WithObserver(a.Observer),
		directory.WithTracer(a.provider.Tracer("hrassist/directory")),
	)
}

func (a *App) openSearcher(override search.Searcher) error {
	if override != nil {
		a.Searcher = override
		return nil
	}
	idx, err := search.Open(a.Config.Search.Path)
	if err != nil {
		return fmt.Errorf("failed to open policy index: %w", err)
	}
	a.closers = append(a.closers, idx.Close)
	a.Searcher = idx
	return nil
}

func (a *App) buildEngine(o *options) error {
	if o.engine != nil {
		a.Engine = o.engine
		return nil
	}

	model := o.model
	if model == nil {
		m, err := engine.NewOpenAIModel(&a.Config.Engine.Model)
		if err != nil {
			return fmt.Errorf("failed to create chat model: %w", err)
		}
		model = m
	}

	a.Engine = engine.NewAgentFromConfig(&a.Config.Engine, model, a.Threads,
		engine.WithTools(a.Tools),
		engine.WithObserver(a.Observer),
	)
	return nil
}

// Close releases the directory and index and flushes traces. Errors are
// joined; every resource is closed regardless.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	if err := a.provider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down tracing: %w", err))
	}
	return errors.Join(errs...)
}
