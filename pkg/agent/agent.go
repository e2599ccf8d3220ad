// Package agent hosts the control loop that drives one user goal to
// completion: submit the transcript to the model, execute the tools it
// requests against the device, append the results, and repeat until the
// model stops asking for tools or the goal is cancelled.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/droidpilot/droidpilot/pkg/domain"
	"github.com/droidpilot/droidpilot/pkg/provider"
	"github.com/droidpilot/droidpilot/pkg/store"
	"github.com/droidpilot/droidpilot/pkg/tool"
)

// Status is the terminal state of one goal.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusAuthFailed Status = "auth_failed"
	StatusCancelled  Status = "cancelled"
)

// Outcome reports how a goal ended.
type Outcome struct {
	Status         Status
	Message        string
	Elapsed        time.Duration
	ConversationID string
}

// Observer receives status callbacks from a running loop. Implementations
// are read-only observers; they must not mutate the transcript.
type Observer interface {
	// Thinking delivers the model's reply text before any requested tools
	// execute, so the operator sees stated intent ahead of side effects.
	Thinking(text string)
	// ToolExecuted reports one completed tool invocation.
	ToolExecuted(name, result string, elapsed time.Duration)
	// Finished delivers the terminal outcome. Called exactly once per goal.
	Finished(outcome Outcome)
}

// ModelCaller abstracts the provider client so tests can substitute fakes.
type ModelCaller interface {
	Call(ctx context.Context, messages []domain.Message, tools []tool.Definition) (*provider.Reply, error)
}

// ProviderCaller adapts provider.Client to ModelCaller for one configured
// model.
type ProviderCaller struct {
	Client  *provider.Client
	Adapter provider.Adapter
	Model   string
	APIKey  string
}

func (p *ProviderCaller) Call(ctx context.Context, messages []domain.Message, tools []tool.Definition) (*provider.Reply, error) {
	return p.Client.Complete(ctx, p.Adapter, p.Model, messages, tools, p.APIKey)
}

// Config tunes one loop instance.
type Config struct {
	// MaxAttempts bounds model-call attempts per turn (default 3).
	MaxAttempts int
	// BackoffBase is the base of the exponential retry delay (default 1s).
	BackoffBase time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	return c
}

// Loop is the per-goal state machine. A fresh Loop processes exactly one
// goal; no state leaks between independent commands.
type Loop struct {
	cfg      Config
	caller   ModelCaller
	registry *tool.Registry
	caps     tool.Capabilities
	store    *store.Store
	observer Observer
}

// New creates a loop. store and observer may be nil (no persistence /
// no callbacks).
func New(cfg Config, caller ModelCaller, registry *tool.Registry, caps tool.Capabilities, st *store.Store, observer Observer) *Loop {
	return &Loop{
		cfg:      cfg.withDefaults(),
		caller:   caller,
		registry: registry,
		caps:     caps,
		store:    st,
		observer: observer,
	}
}

// Run drives the goal to a terminal outcome. It blocks; callers wanting
// asynchrony use Runner. The transcript is persisted on every terminal path,
// including cancellation.
func (l *Loop) Run(ctx context.Context, goal string) Outcome {
	start := time.Now()
	conv := &domain.Conversation{
		ID:        "conv_" + uuid.NewString(),
		StartTime: start,
	}
	conv.Messages = append(conv.Messages,
		domain.TextMessage(domain.RoleSystem, l.systemPrompt()),
		domain.TextMessage(domain.RoleUser, goal),
	)

	slog.Info("Goal started", "conversation", conv.ID, "goal", goal)

	outcome := l.run(ctx, conv)
	outcome.Elapsed = time.Since(start)
	outcome.ConversationID = conv.ID

	conv.Complete(time.Now())
	l.persist(conv, outcome.Elapsed)

	slog.Info("Goal finished",
		"conversation", conv.ID,
		"status", outcome.Status,
		"elapsed", outcome.Elapsed,
	)
	if l.observer != nil {
		l.observer.Finished(outcome)
	}
	return outcome
}

func (l *Loop) run(ctx context.Context, conv *domain.Conversation) Outcome {
	for {
		if ctx.Err() != nil {
			return Outcome{Status: StatusCancelled, Message: "Cancelled"}
		}

		// Historical hierarchy dumps are only useful as the most recent
		// observation; drop the rest before every call to keep the
		// prompt bounded over long tasks.
		CompactHierarchyDumps(conv.Messages)

		reply, err := l.callModel(ctx, conv.Messages)
		if err != nil {
			return l.classifyFailure(ctx, err)
		}

		if l.observer != nil && reply.Text != "" {
			l.observer.Thinking(reply.Text)
		}

		assistant := domain.TextMessage(domain.RoleAssistant, reply.Text)
		assistant.Annotations = reply.Stats

		if len(reply.ToolCalls) == 0 {
			// The model has nothing further to do: the goal is finished.
			conv.Messages = append(conv.Messages, assistant)
			return Outcome{Status: StatusSuccess, Message: reply.Text}
		}

		assistant.ToolCalls = ensureCallIDs(reply.ToolCalls)
		conv.Messages = append(conv.Messages, assistant)

		cancelled := l.executeBatch(ctx, conv, assistant.ToolCalls)
		if cancelled {
			return Outcome{Status: StatusCancelled, Message: "Cancelled"}
		}
	}
}

// executeBatch runs the batch sequentially, in issue order: later calls may
// depend on screen state changed by earlier ones. Every tool_calls entry
// gets a tool reply even when cancellation interrupts the batch, so the
// transcript stays well-formed for providers that validate the pairing.
func (l *Loop) executeBatch(ctx context.Context, conv *domain.Conversation, calls []domain.ToolCall) (cancelled bool) {
	for _, call := range calls {
		var result string
		var elapsed time.Duration

		if ctx.Err() != nil {
			cancelled = true
			result = "Cancelled before execution"
		} else {
			started := time.Now()
			result = l.registry.Dispatch(ctx, call.Name, call.Arguments, l.caps)
			elapsed = time.Since(started)
			if l.observer != nil {
				l.observer.ToolExecuted(call.Name, result, elapsed)
			}
		}

		msg := domain.TextMessage(domain.RoleTool, result)
		msg.ToolCallID = call.ID
		msg.Name = call.Name
		msg.Annotations = domain.Annotations{LatencyMS: elapsed.Milliseconds()}
		conv.Messages = append(conv.Messages, msg)
	}
	if !cancelled && ctx.Err() != nil {
		cancelled = true
	}
	return cancelled
}

// callModel performs one model turn with bounded exponential-backoff retry.
// Authentication and malformed-response failures are terminal immediately;
// only transient failures are retried, up to MaxAttempts total attempts.
func (l *Loop) callModel(ctx context.Context, messages []domain.Message) (*provider.Reply, error) {
	retries := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reply, err := l.caller.Call(ctx, messages, l.registry.List())
		if err == nil {
			return reply, nil
		}

		var authErr *provider.AuthError
		if errors.As(err, &authErr) {
			// Retrying cannot fix a bad credential.
			return nil, err
		}
		var malformed *provider.MalformedResponseError
		if errors.As(err, &malformed) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		retries++
		if retries >= l.cfg.MaxAttempts {
			return nil, fmt.Errorf("giving up after %d attempts: %w", retries, err)
		}

		delay := l.cfg.BackoffBase * (1 << retries)
		slog.Warn("Model call failed, retrying",
			"attempt", retries,
			"maxAttempts", l.cfg.MaxAttempts,
			"delay", delay,
			"error", err,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *Loop) classifyFailure(ctx context.Context, err error) Outcome {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return Outcome{Status: StatusCancelled, Message: "Cancelled"}
	}
	var authErr *provider.AuthError
	if errors.As(err, &authErr) {
		return Outcome{
			Status:  StatusAuthFailed,
			Message: "Authentication with the model provider failed. Check the configured API key.",
		}
	}
	return Outcome{Status: StatusFailed, Message: fmt.Sprintf("Goal abandoned: %v", err)}
}

// ensureCallIDs synthesizes stable ids for providers that omit them, so every
// tool reply can reference its call. Millisecond timestamps can in theory
// collide across batches; the per-batch index keeps ids unique within one.
func ensureCallIDs(calls []domain.ToolCall) []domain.ToolCall {
	out := make([]domain.ToolCall, len(calls))
	copy(out, calls)
	now := time.Now().UnixMilli()
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = fmt.Sprintf("call_%d_%d", now, i)
		}
	}
	return out
}

func (l *Loop) persist(conv *domain.Conversation, wall time.Duration) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(conv, ComputeStats(conv, wall)); err != nil {
		slog.Error("Failed to persist conversation", "conversation", conv.ID, "error", err)
	}
}
