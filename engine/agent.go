package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/tailored-agentic-units/hrassist/conversation"
	"github.com/tailored-agentic-units/hrassist/telemetry"
	"github.com/tailored-agentic-units/hrassist/tools"
)

// ToolExecutor lists and runs the tools offered to the model.
// *tools.Registry satisfies it.
type ToolExecutor interface {
	List() []conversation.Tool
	Execute(ctx context.Context, name string, args json.RawMessage) (tools.Result, error)
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithInstructions overrides DefaultInstructions.
func WithInstructions(s string) AgentOption {
	return func(a *Agent) { a.instructions = s }
}

// WithMaxIterations sets the tool loop budget. Zero means unbounded.
func WithMaxIterations(n int) AgentOption {
	return func(a *Agent) { a.maxIterations = n }
}

// WithTools sets the tool executor. Defaults to an empty registry.
func WithTools(t ToolExecutor) AgentOption {
	return func(a *Agent) { a.tools = t }
}

// WithObserver sets the event observer. Defaults to NoOpObserver.
func WithObserver(o telemetry.Observer) AgentOption {
	return func(a *Agent) { a.observer = o }
}

// Agent is the Engine implementation: an observe/think/act loop over a
// ChatModel. Each exchange loads the thread, appends the question, lets the
// model call tools until it answers, then saves the thread. A failed or
// abandoned exchange leaves the stored thread untouched.
type Agent struct {
	model         ChatModel
	threads       *conversation.Store
	tools         ToolExecutor
	observer      telemetry.Observer
	instructions  string
	maxIterations int
}

// NewAgent creates an Agent that keeps thread histories in threads.
func NewAgent(model ChatModel, threads *conversation.Store, opts ...AgentOption) *Agent {
	a := &Agent{
		model:         model,
		threads:       threads,
		tools:         tools.NewRegistry(),
		observer:      telemetry.NoOpObserver{},
		instructions:  DefaultInstructions,
		maxIterations: defaultMaxIterations,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewAgentFromConfig applies cfg on top of NewAgent's defaults.
func NewAgentFromConfig(cfg *Config, model ChatModel, threads *conversation.Store, opts ...AgentOption) *Agent {
	base := []AgentOption{
		WithInstructions(cfg.Instructions),
		WithMaxIterations(cfg.MaxIterations),
	}
	return NewAgent(model, threads, append(base, opts...)...)
}

func (a *Agent) open(ctx context.Context, req Request) (*conversation.Thread, error) {
	if req.ThreadID == "" {
		return conversation.NewThread(), nil
	}

	t, err := a.threads.Load(ctx, req.ThreadID)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, req.ThreadID)
		}
		return nil, err
	}
	return t, nil
}

func (a *Agent) messages(t *conversation.Thread) []conversation.Message {
	history := t.Messages()
	if a.instructions == "" {
		return history
	}

	msgs := make([]conversation.Message, 0, len(history)+1)
	msgs = append(msgs, conversation.NewMessage(conversation.RoleSystem, a.instructions))
	return append(msgs, history...)
}

func (a *Agent) emit(ctx context.Context, typ telemetry.EventType, level telemetry.Level, data map[string]any) {
	a.observer.OnEvent(ctx, telemetry.NewEvent(typ, level, "engine.Agent", data))
}

func (a *Agent) start(ctx context.Context, req Request) (*conversation.Thread, error) {
	t, err := a.open(ctx, req)
	if err != nil {
		a.emit(ctx, EventError, telemetry.LevelError, map[string]any{"error": err.Error()})
		return nil, err
	}
	t.Append(conversation.NewMessage(conversation.RoleUser, req.Question))

	a.emit(ctx, EventRunStart, telemetry.LevelInfo, map[string]any{
		"thread_id":      t.ID(),
		"new_thread":     req.ThreadID == "",
		"question_len":   len(req.Question),
		"max_iterations": a.maxIterations,
		"tools":          len(a.tools.List()),
	})
	return t, nil
}

// runTools executes each requested call and appends the results to t.
func (a *Agent) runTools(ctx context.Context, t *conversation.Thread, iteration int, calls []conversation.ToolCall) {
	for _, tc := range calls {
		a.emit(ctx, EventToolCall, telemetry.LevelVerbose, map[string]any{
			"iteration": iteration,
			"name":      tc.Name,
		})

		var (
			content string
			isError bool
		)
		if res, err := a.tools.Execute(ctx, tc.Name, json.RawMessage(tc.Arguments)); err != nil {
			content, isError = fmt.Sprintf("error: %s", err), true
		} else {
			content, isError = res.Content, res.IsError
		}

		t.Append(conversation.Message{
			Role:       conversation.RoleTool,
			Content:    content,
			ToolCallID: tc.ID,
		})

		a.emit(ctx, EventToolComplete, telemetry.LevelVerbose, map[string]any{
			"iteration": iteration,
			"name":      tc.Name,
			"error":     isError,
		})
	}
}

func (a *Agent) finish(ctx context.Context, t *conversation.Thread, iteration int, answer string) error {
	t.Append(conversation.NewMessage(conversation.RoleAssistant, answer))
	if err := a.threads.Save(ctx, t); err != nil {
		a.emit(ctx, EventError, telemetry.LevelError, map[string]any{"error": err.Error()})
		return err
	}

	a.emit(ctx, EventResponse, telemetry.LevelInfo, map[string]any{
		"thread_id":       t.ID(),
		"iteration":       iteration,
		"response_length": len(answer),
	})
	return nil
}

func (a *Agent) exhausted(ctx context.Context) error {
	a.emit(ctx, EventError, telemetry.LevelWarning, map[string]any{
		"error":      "max iterations reached",
		"iterations": a.maxIterations,
	})
	return ErrMaxIterations
}

func (a *Agent) within(iteration int) bool {
	return a.maxIterations == 0 || iteration < a.maxIterations
}

// Respond runs the tool loop to completion. The answer is the text of every
// model turn in order, matching what Stream yields.
func (a *Agent) Respond(ctx context.Context, req Request) (*Reply, error) {
	t, err := a.start(ctx, req)
	if err != nil {
		return nil, err
	}

	var answer strings.Builder

	for iteration := 0; a.within(iteration); iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.emit(ctx, EventIterationStart, telemetry.LevelVerbose, map[string]any{"iteration": iteration + 1})

		comp, err := a.model.Complete(ctx, a.messages(t), a.tools.List())
		if err != nil {
			a.emit(ctx, EventError, telemetry.LevelError, map[string]any{"error": err.Error()})
			return nil, fmt.Errorf("model call failed: %w", err)
		}

		answer.WriteString(comp.Content)

		if len(comp.ToolCalls) == 0 {
			if err := a.finish(ctx, t, iteration+1, comp.Content); err != nil {
				return nil, err
			}
			return &Reply{Content: Text(answer.String()), ThreadID: t.ID()}, nil
		}

		t.Append(conversation.Message{
			Role:      conversation.RoleAssistant,
			Content:   comp.Content,
			ToolCalls: comp.ToolCalls,
		})
		a.runTools(ctx, t, iteration+1, comp.ToolCalls)
	}

	return nil, a.exhausted(ctx)
}

// Stream runs the tool loop, yielding the model's text as it arrives,
// including text the model emits alongside tool calls.
func (a *Agent) Stream(ctx context.Context, req Request) iter.Seq2[Delta, error] {
	return func(yield func(Delta, error) bool) {
		t, err := a.start(ctx, req)
		if err != nil {
			yield(Delta{}, err)
			return
		}

		for iteration := 0; a.within(iteration); iteration++ {
			if err := ctx.Err(); err != nil {
				yield(Delta{}, err)
				return
			}
			a.emit(ctx, EventIterationStart, telemetry.LevelVerbose, map[string]any{"iteration": iteration + 1})

			var (
				text  strings.Builder
				calls []conversation.ToolCall
			)
			for md, err := range a.model.Stream(ctx, a.messages(t), a.tools.List()) {
				if err != nil {
					a.emit(ctx, EventError, telemetry.LevelError, map[string]any{"error": err.Error()})
					yield(Delta{}, fmt.Errorf("model call failed: %w", err))
					return
				}
				if md.Text != "" {
					text.WriteString(md.Text)
					if !yield(Delta{Content: Text(md.Text)}, nil) {
						return
					}
				}
				if md.Done {
					calls = md.ToolCalls
				}
			}

			if len(calls) == 0 {
				if err := a.finish(ctx, t, iteration+1, text.String()); err != nil {
					yield(Delta{}, err)
					return
				}
				yield(Delta{Final: true, ThreadID: t.ID()}, nil)
				return
			}

			t.Append(conversation.Message{
				Role:      conversation.RoleAssistant,
				Content:   text.String(),
				ToolCalls: calls,
			})
			a.runTools(ctx, t, iteration+1, calls)
		}

		yield(Delta{}, a.exhausted(ctx))
	}
}
