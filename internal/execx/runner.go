// Package execx runs external programs with discrete arguments. Commands are
// never assembled into a shell string.
package execx

import (
	"bytes"
	"context"
	"errors"
	osexec "os/exec"
)

// Runner executes external commands. Inject it so tools can be tested without
// spawning processes.
type Runner interface {
	// RunSeparate runs name with args in dir and returns stdout and stderr separately.
	// A non-zero exit is reported as an error satisfying ExitCoder.
	RunSeparate(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExitCoder is satisfied by errors that carry a process exit code (e.g. *exec.ExitError).
type ExitCoder interface {
	ExitCode() int
}

// OSRunner implements Runner using os/exec.
type OSRunner struct {
	// Env overrides the child environment (nil inherits from the parent).
	Env []string
}

func (r OSRunner) RunSeparate(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ExitCode extracts a process exit code from err, or -1 when err does not carry one.
func ExitCode(err error) int {
	var ec ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}
