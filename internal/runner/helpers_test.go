package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/petasbytes/toolbridge/internal/client"
	"github.com/petasbytes/toolbridge/internal/runner"
	"github.com/petasbytes/toolbridge/memory"
)

// scriptedCompleter returns canned responses in order and records every request.
type scriptedCompleter struct {
	responses []memory.Message
	err       error
	requests  []runner.CompletionRequest
}

func (s *scriptedCompleter) Complete(_ context.Context, req runner.CompletionRequest) (memory.Message, error) {
	// Copy: the runner owns the slice it passes in.
	req.Messages = append([]memory.Message(nil), req.Messages...)
	s.requests = append(s.requests, req)
	if s.err != nil {
		return memory.Message{}, s.err
	}
	if len(s.requests) > len(s.responses) {
		return memory.Message{}, fmt.Errorf("script exhausted after %d responses", len(s.responses))
	}
	return s.responses[len(s.requests)-1], nil
}

// loopingCompleter asks for the same tool on every call.
type loopingCompleter struct{ calls int }

func (l *loopingCompleter) Complete(context.Context, runner.CompletionRequest) (memory.Message, error) {
	l.calls++
	return assistant(call(fmt.Sprintf("c%d", l.calls), "echo", `{"msg":"again"}`)), nil
}

type recordedCall struct {
	name string
	args string
}

// fakeCaller answers tool calls from a function and records them.
type fakeCaller struct {
	calls  []recordedCall
	answer func(name string, args json.RawMessage) (client.Result, error)
}

func (f *fakeCaller) CallTool(_ context.Context, name string, args json.RawMessage) (client.Result, error) {
	f.calls = append(f.calls, recordedCall{name: name, args: string(args)})
	if f.answer != nil {
		return f.answer(name, args)
	}
	var in struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return client.Result{}, errors.New("bad args in fake")
	}
	return client.Result{Text: in.Msg}, nil
}

func assistant(segs ...memory.Segment) memory.Message {
	return memory.Message{Role: memory.RoleAssistant, Segments: segs}
}

func text(s string) memory.Segment { return memory.TextSegment(s) }

func call(id, name, input string) memory.Segment {
	return memory.ToolCallSegment(id, name, json.RawMessage(input))
}

// recorder collects observer events.
type recorder struct{ events []runner.Event }

func (r *recorder) observe(ev runner.Event) { r.events = append(r.events, ev) }

func (r *recorder) kinds() []runner.EventKind {
	out := make([]runner.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}
