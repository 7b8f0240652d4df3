package tools

import (
	"context"

	"github.com/petasbytes/toolbridge/internal/execx"
	"github.com/petasbytes/toolbridge/internal/fsops"
)

// BuiltinOptions selects and wires the built-in tools.
type BuiltinOptions struct {
	// Sandbox backs the file tools and run_command; nil resolves one from
	// AGT_READ_ROOT and AGT_WRITE_ROOT.
	Sandbox *fsops.Sandbox
	// EnableExec registers run_command.
	EnableExec bool
	// Runner backs run_command; nil uses execx.OSRunner.
	Runner execx.Runner
}

// Builtin returns the built-in tool definitions in their advertised order.
func Builtin(opts BuiltinOptions) ([]ToolDefinition, error) {
	sb := opts.Sandbox
	if sb == nil {
		var err error
		if sb, err = fsops.FromEnv(); err != nil {
			return nil, err
		}
	}
	defs := []ToolDefinition{
		EchoDefinition,
		ReadFileDefinition(sb),
		ListFilesDefinition(sb),
		EditFileDefinition(sb),
	}
	if opts.EnableExec {
		runner := opts.Runner
		if runner == nil {
			runner = execx.OSRunner{}
		}
		defs = append(defs, RunCommandDefinition(sb, runner))
	}
	return defs, nil
}

type EchoInput struct {
	Msg string `json:"msg" jsonschema_description:"Text to send back unchanged."`
}

var EchoDefinition = Define("echo",
	"Return the given message unchanged. Useful for checking that tool calls work.",
	func(_ context.Context, in EchoInput) (any, error) { return in.Msg, nil },
)
