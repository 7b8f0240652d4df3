package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/petasbytes/toolbridge/internal/telemetry"
	"github.com/petasbytes/toolbridge/internal/windowing"
	"github.com/petasbytes/toolbridge/memory"
	"github.com/petasbytes/toolbridge/tools"
)

// DefaultMaxToolRounds caps tool round-trips per turn unless overridden.
const DefaultMaxToolRounds = 16

var (
	// ErrToolRoundLimit is returned when a turn needs more tool rounds than allowed.
	ErrToolRoundLimit = errors.New("runner: tool round limit reached")
	// ErrOverBudget is returned when the token budget cannot hold a window
	// that starts with a user message, e.g. when the newest group alone exceeds it.
	ErrOverBudget = errors.New("runner: newest message group exceeds token budget")
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets a structured logger for the Runner.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver registers a callback for text, tool call and tool result events.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithMaxToolRounds sets the per-turn tool round cap. Zero disables the cap.
func WithMaxToolRounds(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxToolRounds = n
		}
	}
}

// WithTokenBudget trims the history sent on each call to the newest groups
// that fit budget. Zero or less sends the full history.
func WithTokenBudget(budget int, c windowing.TokenCounter) Option {
	return func(r *Runner) {
		r.tokenBudget = budget
		if c != nil {
			r.counter = c
		}
	}
}

// Runner orchestrates turns against a completer and a tool caller.
type Runner struct {
	completer Completer
	caller    ToolCaller
	catalogue []tools.Descriptor

	observer      Observer
	logger        *slog.Logger
	maxToolRounds int
	tokenBudget   int
	counter       windowing.TokenCounter
}

// New returns a Runner. catalogue is sent unchanged with every completion call.
func New(completer Completer, caller ToolCaller, catalogue []tools.Descriptor, opts ...Option) *Runner {
	if completer == nil || caller == nil {
		panic("runner: completer and caller must not be nil")
	}
	r := &Runner{
		completer:     completer,
		caller:        caller,
		catalogue:     catalogue,
		maxToolRounds: DefaultMaxToolRounds,
		counter:       windowing.HeuristicCounter{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// log returns the Runner's logger, falling back to the default slog logger.
func (r *Runner) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

func (r *Runner) emit(ev Event) {
	if r.observer != nil {
		r.observer(ev)
	}
}

// RunTurn appends userText to conv and loops completion and tool dispatch
// until the model replies without tool calls. On a hard failure (completion
// error, transport error, cancellation) conv is restored to its state before
// the turn. On ErrToolRoundLimit the history is kept; it is well-formed.
func (r *Runner) RunTurn(ctx context.Context, conv *memory.Conversation, userText string) (TurnStats, error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	stats := TurnStats{TurnID: turnID}
	start := time.Now()

	mark := conv.Len()
	conv.Append(memory.UserText(userText))
	telemetry.EmitTextFeatures(ctx, "user", userText)

	err := r.loop(ctx, conv, &stats)
	if err != nil && !errors.Is(err, ErrToolRoundLimit) {
		conv.Truncate(mark)
	}

	telemetry.Emit("turn_end", map[string]any{
		"turn_id":     turnID,
		"completions": stats.Completions,
		"tool_calls":  stats.ToolCalls,
		"rounds":      stats.Rounds,
		"duration_ms": time.Since(start).Milliseconds(),
		"error":       errString(err),
	})
	if err != nil {
		r.log().Warn("turn failed", "turn_id", turnID, "error", err)
	}
	return stats, err
}

func (r *Runner) loop(ctx context.Context, conv *memory.Conversation, stats *TurnStats) error {
	for {
		step, err := r.RunOneStep(ctx, conv)
		if err != nil {
			return err
		}
		stats.Completions++
		if step.Results == nil {
			return nil
		}
		stats.Rounds++
		stats.ToolCalls += len(step.Results.Segments)
		if r.maxToolRounds > 0 && stats.Rounds >= r.maxToolRounds {
			return fmt.Errorf("%w (%d)", ErrToolRoundLimit, r.maxToolRounds)
		}
	}
}

// RunOneStep performs one completion call and dispatches the tool calls it
// contains, in order. The response and its results are appended to conv only
// when every dispatch reached the server.
func (r *Runner) RunOneStep(ctx context.Context, conv *memory.Conversation) (StepResult, error) {
	window, err := r.window(ctx, conv.Messages())
	if err != nil {
		return StepResult{}, err
	}

	began := time.Now()
	resp, err := r.completer.Complete(ctx, CompletionRequest{Messages: window, Tools: r.catalogue})
	if err != nil {
		return StepResult{}, fmt.Errorf("completion: %w", err)
	}
	resp.Role = memory.RoleAssistant
	r.log().Debug("completion", "segments", len(resp.Segments), "duration", time.Since(began))

	var results []memory.Segment
	for _, seg := range resp.Segments {
		switch seg.Kind {
		case memory.KindText:
			r.emit(Event{Kind: EventText, Text: seg.Text})
		case memory.KindToolCall:
			r.emit(Event{Kind: EventToolCall, ToolName: seg.Name, ToolCallID: seg.ID, Input: seg.Input})
			res, err := r.caller.CallTool(ctx, seg.Name, seg.Input)
			if err != nil {
				return StepResult{}, fmt.Errorf("call %s: %w", seg.Name, err)
			}
			telemetry.EmitTextFeatures(ctx, "tool:"+seg.Name, res.Text)
			r.emit(Event{Kind: EventToolResult, ToolName: seg.Name, ToolCallID: seg.ID, Text: res.Text, IsError: res.IsError})
			results = append(results, memory.ToolResultSegment(seg.ID, res.Text, res.IsError))
		}
	}

	step := StepResult{Response: resp}
	if len(resp.Segments) > 0 {
		conv.Append(resp)
	}
	if len(results) > 0 {
		msg := memory.Message{Role: memory.RoleUser, Segments: results}
		conv.Append(msg)
		step.Results = &msg
	}
	return step, nil
}

func (r *Runner) window(ctx context.Context, msgs []memory.Message) ([]memory.Message, error) {
	if r.tokenBudget <= 0 {
		return msgs, nil
	}
	window, stats := windowing.Fit(msgs, r.tokenBudget, r.counter)

	turnID, _ := telemetry.TurnIDFromContext(ctx)
	telemetry.Emit("window_prepared", map[string]any{
		"turn_id":            turnID,
		"budget":             stats.Budget,
		"total_estimated":    stats.Total,
		"included_groups":    stats.IncludedGroups,
		"skipped_groups":     stats.SkippedGroups,
		"over_budget_newest": stats.OverBudgetNewest,
	})
	r.log().Debug("window prepared", "budget", stats.Budget, "estimated", stats.Total,
		"groups_in", stats.IncludedGroups, "groups_skipped", stats.SkippedGroups)

	if stats.OverBudgetNewest {
		return nil, ErrOverBudget
	}
	window = windowing.StartAtUser(window)
	if len(window) == 0 {
		return nil, ErrOverBudget
	}
	return window, nil
}

func errString(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}
