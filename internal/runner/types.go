package runner

import (
	"context"
	"encoding/json"

	"github.com/petasbytes/toolbridge/internal/client"
	"github.com/petasbytes/toolbridge/memory"
	"github.com/petasbytes/toolbridge/tools"
)

// CompletionRequest is what the completion endpoint sees on each call.
type CompletionRequest struct {
	Messages []memory.Message
	Tools    []tools.Descriptor
}

// Completer produces the next assistant message for a history.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (memory.Message, error)
}

// ToolCaller invokes a tool by name. *client.Client satisfies it.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args json.RawMessage) (client.Result, error)
}

// EventKind identifies what an Event reports.
type EventKind int

const (
	EventText EventKind = iota
	EventToolCall
	EventToolResult
)

// Event is delivered to the Observer as a turn progresses, in document order.
type Event struct {
	Kind EventKind
	// Text is the model text for EventText and the tool output for EventToolResult.
	Text       string
	ToolName   string
	ToolCallID string
	Input      json.RawMessage
	IsError    bool
}

// Observer receives turn events. It runs on the turn's goroutine.
type Observer func(Event)

// TurnStats summarises a completed or aborted turn.
type TurnStats struct {
	TurnID      string
	Completions int
	ToolCalls   int
	Rounds      int
}

// StepResult is the outcome of one completion round.
type StepResult struct {
	Response memory.Message
	// Results holds the tool results message; nil when the response made no tool calls.
	Results *memory.Message
}
