package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/petasbytes/go-mcp-agent/internal/metrics"
	"github.com/petasbytes/go-mcp-agent/internal/provider"
	"github.com/petasbytes/go-mcp-agent/internal/telemetry"
	"github.com/petasbytes/go-mcp-agent/internal/toolsession"
	"github.com/petasbytes/go-mcp-agent/internal/windowing"
	"github.com/petasbytes/go-mcp-agent/memory"
)

// DefaultMaxToolRounds caps tool rounds per query when Options leaves it unset.
const DefaultMaxToolRounds = 10

// ToolSession is the part of *toolsession.Session the runner needs.
type ToolSession interface {
	ListTools(ctx context.Context) ([]toolsession.Descriptor, error)
	CallTool(ctx context.Context, name string, args json.RawMessage) (toolsession.Result, error)
}

type Options struct {
	// MaxToolRounds limits how many tool requests one query may resolve.
	// Zero selects DefaultMaxToolRounds; a negative value removes the limit.
	MaxToolRounds int
	// HistoryBudget caps the estimated size of the history sent with each
	// completion. The system message is always sent; zero sends everything.
	HistoryBudget int
	Logger        *slog.Logger
}

// Runner owns one conversation and answers queries against it.
type Runner struct {
	Client provider.CompletionClient
	Tools  ToolSession

	conv      *memory.Conversation
	maxRounds int
	budget    int
	log       *slog.Logger

	busy  sync.Mutex
	state atomic.Int32
}

func New(client provider.CompletionClient, tools ToolSession, conv *memory.Conversation, opts Options) *Runner {
	maxRounds := opts.MaxToolRounds
	if maxRounds == 0 {
		maxRounds = DefaultMaxToolRounds
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Client:    client,
		Tools:     tools,
		conv:      conv,
		maxRounds: maxRounds,
		budget:    opts.HistoryBudget,
		log:       logger.With("component", "runner"),
	}
}

// Conversation returns the log the runner appends to.
func (r *Runner) Conversation() *memory.Conversation { return r.conv }

func (r *Runner) State() State { return State(r.state.Load()) }

func (r *Runner) setState(s State) { r.state.Store(int32(s)) }

// Query appends text as a user message and loops until the model answers.
//
// Tool descriptors are fetched once, before anything is appended; if that fails
// the conversation is untouched. Any later error leaves the messages appended so
// far in place, and every requested tool call answered.
func (r *Runner) Query(ctx context.Context, text string) (string, error) {
	if !r.busy.TryLock() {
		return "", ErrBusy
	}
	defer r.busy.Unlock()
	defer r.setState(StateIdle)

	turnID, ok := telemetry.TurnIDFromContext(ctx)
	if !ok {
		turnID = uuid.NewString()
		ctx = telemetry.WithTurnID(ctx, turnID)
	}
	log := r.log.With("turn_id", turnID)
	start := time.Now()

	tools, err := r.Tools.ListTools(ctx)
	if err != nil {
		return "", fmt.Errorf("list tools: %w", err)
	}
	telemetry.EmitQueryStarted(ctx, text, len(tools))
	log.Debug("query started", "tools", len(tools))

	if err := r.conv.Append(memory.UserMessage(text)); err != nil {
		return "", err
	}

	rounds := 0
	finish := func(outcome string) {
		telemetry.EmitQueryCompleted(ctx, outcome, rounds, time.Since(start), metrics.CountConversation(r.conv.Messages()))
	}

	for {
		if err := ctx.Err(); err != nil {
			finish("cancelled")
			return "", err
		}
		r.setState(StateAwaitingCompletion)
		turn, err := r.complete(ctx, log, rounds, tools)
		if err != nil {
			log.Warn("completion failed", "round", rounds, "err", err)
			finish("error")
			return "", err
		}

		switch t := turn.(type) {
		case *provider.FinalAnswer:
			if err := r.conv.Append(memory.AssistantMessage(t.Text)); err != nil {
				finish("error")
				return "", err
			}
			finish("final")
			log.Debug("query answered", "rounds", rounds)
			return t.Text, nil

		case *provider.ToolRequest:
			if r.maxRounds > 0 && rounds >= r.maxRounds {
				finish("tool_loop_exceeded")
				return "", &ToolLoopExceededError{Rounds: rounds}
			}
			rounds++
			if err := r.conv.Append(t.Message()); err != nil {
				// Rejected for missing or repeated call ids.
				finish("error")
				return "", &provider.CompletionRequestError{Err: fmt.Errorf("%w: %w", provider.ErrMalformedResponse, err)}
			}
			r.setState(StateExecutingTool)
			if err := r.resolve(ctx, log, t.Calls); err != nil {
				finish("error")
				return "", err
			}

		default:
			finish("error")
			return "", fmt.Errorf("runner: unexpected turn type %T", turn)
		}
	}
}

func (r *Runner) complete(ctx context.Context, log *slog.Logger, round int, tools []toolsession.Descriptor) (provider.Turn, error) {
	full := r.conv.Messages()
	history := r.window(log, full)
	start := time.Now()
	turn, err := r.Client.Complete(ctx, history, tools)

	ev := telemetry.Completion{Round: round, Messages: len(history), Duration: time.Since(start), Windowed: len(full) - len(history)}
	switch t := turn.(type) {
	case *provider.FinalAnswer:
		ev.Outcome = "final"
	case *provider.ToolRequest:
		ev.Outcome = "tool_request"
		ev.ToolCalls = len(t.Calls)
	}
	if err != nil {
		ev.Outcome = "error"
	}
	telemetry.EmitCompletion(ctx, ev)
	return turn, err
}

// window drops the oldest message groups that do not fit the history budget.
func (r *Runner) window(log *slog.Logger, history []memory.Message) []memory.Message {
	if r.budget <= 0 || len(history) < 2 {
		return history
	}
	system, rest := history[0], history[1:]
	counter := windowing.HeuristicCounter{}
	win, stats := windowing.PrepareSendWindow(rest, r.budget-counter.CountMessage(system), counter)
	if stats.OverBudgetNewest {
		log.Warn("newest messages exceed history budget, sending them alone", "budget", r.budget)
		win = windowing.NewestGroup(rest)
	}
	return append([]memory.Message{system}, win...)
}

// resolve answers every call in order. A fatal error stops execution; the
// remaining calls are then answered with diagnostics so the log stays well formed.
func (r *Runner) resolve(ctx context.Context, log *slog.Logger, calls []memory.ToolCall) error {
	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			r.abandon(log, calls[i:], "cancelled")
			return err
		}
		msg, err := r.execTool(ctx, log, call)
		if err != nil {
			r.abandon(log, calls[i:], err.Error())
			return err
		}
		if err := r.conv.Append(msg); err != nil {
			return fmt.Errorf("append tool result: %w", err)
		}
	}
	return nil
}

func (r *Runner) abandon(log *slog.Logger, calls []memory.ToolCall, reason string) {
	msgs := make([]memory.Message, 0, len(calls))
	for _, c := range calls {
		msgs = append(msgs, memory.ToolFailureMessage(c.ID, fmt.Sprintf("tool %s not executed: %s", c.Name, reason)))
	}
	if err := r.conv.Append(msgs...); err != nil {
		log.Error("could not record abandoned tool calls", "err", err)
	}
}

// execTool runs one call and returns its tool message. The error is non-nil only
// when the query has to stop: the session is gone or the context ended.
func (r *Runner) execTool(ctx context.Context, log *slog.Logger, call memory.ToolCall) (memory.Message, error) {
	log.Info("calling tool", "tool", call.Name, "call_id", call.ID)
	ctx = telemetry.WithToolCall(ctx, call.ID)
	start := time.Now()
	ev := telemetry.ToolExec{Name: call.Name, InputSize: len(call.Arguments)}

	res, err := r.Tools.CallTool(ctx, call.Name, json.RawMessage(call.Arguments))
	ev.Duration = time.Since(start)

	switch {
	case err == nil:
		out := res.Text()
		ev.OutputSize = len(out)
		telemetry.EmitToolExec(ctx, ev)
		return memory.ToolResultMessage(call.ID, out), nil

	case errors.Is(err, toolsession.ErrSessionUnavailable):
		ev.Error = "session unavailable"
		telemetry.EmitToolExec(ctx, ev)
		return memory.Message{}, err

	case ctx.Err() != nil:
		ev.Error = "cancelled"
		telemetry.EmitToolExec(ctx, ev)
		return memory.Message{}, ctx.Err()
	}

	// Everything else is the tool's problem, not the conversation's: report it to the model.
	var invErr *toolsession.ToolInvocationError
	switch {
	case errors.Is(err, toolsession.ErrUnknownTool):
		ev.Error = "tool not found"
	case errors.Is(err, toolsession.ErrMalformedArguments):
		ev.Error = "malformed arguments"
	default:
		ev.Error = "tool error"
	}
	telemetry.EmitToolExec(ctx, ev)
	if !errors.As(err, &invErr) {
		err = &toolsession.ToolInvocationError{Name: call.Name, Cause: err}
	}
	log.Warn("tool failed", "tool", call.Name, "err", err)
	return memory.ToolFailureMessage(call.ID, err.Error()), nil
}
