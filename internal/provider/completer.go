package provider

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/toolbridge/internal/runner"
	"github.com/petasbytes/toolbridge/internal/telemetry"
	"github.com/petasbytes/toolbridge/memory"
)

// Completer calls the Messages API with the conversation and tool catalogue.
type Completer struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewCompleter returns a Completer for model. Empty model and non-positive
// maxTokens use the defaults.
func NewCompleter(client *anthropic.Client, model string, maxTokens int64) *Completer {
	m := anthropic.Model(model)
	if model == "" {
		m = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Completer{client: client, model: m, maxTokens: maxTokens}
}

// Model reports the model identifier used for requests.
func (c *Completer) Model() string { return string(c.model) }

func (c *Completer) Complete(ctx context.Context, req runner.CompletionRequest) (memory.Message, error) {
	tools, err := toolParams(req.Tools)
	if err != nil {
		return memory.Message{}, err
	}
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  messageParams(req.Messages),
		Tools:     tools,
	}

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return memory.Message{}, err
	}

	turnID, _ := telemetry.TurnIDFromContext(ctx)
	telemetry.Emit("completion", map[string]any{
		"turn_id":       turnID,
		"model":         string(c.model),
		"duration_ms":   time.Since(start).Milliseconds(),
		"stop_reason":   string(msg.StopReason),
		"input_tokens":  msg.Usage.InputTokens,
		"output_tokens": msg.Usage.OutputTokens,
		"messages_sent": len(params.Messages),
	})
	return fromResponse(msg), nil
}
