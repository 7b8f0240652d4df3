package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/petasbytes/toolbridge/internal/execx"
	"github.com/petasbytes/toolbridge/internal/fsops"
)

type RunCommandInput struct {
	Program string   `json:"program" jsonschema:"minLength=1" jsonschema_description:"Executable to run, e.g. go or npx. Looked up on PATH."`
	Args    []string `json:"args,omitempty" jsonschema_description:"Arguments passed to the program as separate values. No shell expansion is performed."`
	Dir     string   `json:"dir,omitempty" jsonschema_description:"Optional relative working directory inside the workspace."`
}

// RunCommandDefinition returns run_command running programs through runner
// with a working directory inside sb.
func RunCommandDefinition(sb *fsops.Sandbox, runner execx.Runner) ToolDefinition {
	return Define("run_command",
		`Run a program with arguments inside the workspace and return its output.

Arguments are passed directly to the program; there is no shell, so pipes, globs and variables are not expanded.
A non-zero exit status is reported as an error together with the captured output.`,
		func(ctx context.Context, in RunCommandInput) (any, error) { return runCommand(ctx, sb, runner, in) },
	)
}

func runCommand(ctx context.Context, sb *fsops.Sandbox, runner execx.Runner, in RunCommandInput) (string, error) {
	if strings.TrimSpace(in.Program) == "" {
		return "", fmt.Errorf("program must not be empty")
	}
	dir, err := sb.ResolveDir(in.Dir)
	if err != nil {
		return "", err
	}

	stdout, stderr, err := runner.RunSeparate(ctx, dir, in.Program, in.Args...)
	output := formatOutput(string(stdout), string(stderr))
	if err != nil {
		if code := execx.ExitCode(err); code >= 0 {
			return "", fmt.Errorf("%s exited with status %d\n%s", in.Program, code, output)
		}
		return "", fmt.Errorf("failed to execute %s: %w", in.Program, err)
	}
	return output, nil
}

func formatOutput(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return "--- stderr ---\n" + stderr
	}
	return stdout + "\n--- stderr ---\n" + stderr
}
