package runner_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/petasbytes/toolbridge/internal/client"
	"github.com/petasbytes/toolbridge/internal/jsonrpc"
	"github.com/petasbytes/toolbridge/internal/runner"
	"github.com/petasbytes/toolbridge/internal/server"
	"github.com/petasbytes/toolbridge/memory"
	"github.com/petasbytes/toolbridge/tools"
)

// TestRunTurn_ThroughServer drives a turn over a real client/server pair.
func TestRunTurn_ThroughServer(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg, err := tools.NewRegistry(tools.EchoDefinition, tools.ToolDefinition{
		Name:        "sizes",
		Description: "returns structured data",
		Function: func(context.Context, json.RawMessage) (any, error) {
			return map[string]int{"a": 1, "b": 2}, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	srvConn, cliConn := jsonrpc.Pipe()
	srv := server.New(reg, server.WithLogger(quiet))
	go func() { _ = srv.Serve(context.Background(), srvConn) }()

	cli, err := client.Attach(context.Background(), cliConn, client.WithLogger(quiet))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer cli.Close()

	comp := &scriptedCompleter{responses: []memory.Message{
		assistant(text("Let me check"), call("t1", "echo", `{"msg":"hi"}`), call("t2", "sizes", `{}`), call("t3", "nope", `{}`)),
		assistant(text("Done")),
	}}
	r := runner.New(comp, cli, cli.Tools(), runner.WithLogger(quiet))
	conv := memory.NewConversation()

	if _, err := r.RunTurn(context.Background(), conv, "go"); err != nil {
		t.Fatalf("turn: %v", err)
	}

	if got := comp.requests[0].Tools; len(got) != 2 || got[0].Name != "echo" || got[1].Name != "sizes" {
		t.Fatalf("catalogue sent = %+v", got)
	}

	results := comp.requests[1].Messages[2].Segments
	if len(results) != 3 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Text != "hi" || results[0].IsError {
		t.Errorf("echo result = %+v", results[0])
	}
	var sizes map[string]int
	if err := json.Unmarshal([]byte(results[1].Text), &sizes); err != nil || sizes["a"] != 1 || sizes["b"] != 2 {
		t.Errorf("structured result not lossless: %q (%v)", results[1].Text, err)
	}
	if !results[2].IsError {
		t.Errorf("unknown tool should come back as an error result: %+v", results[2])
	}
}
