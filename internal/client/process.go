package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/petasbytes/toolbridge/internal/jsonrpc"
)

// ServerCommand describes how to launch a server. Args are passed to the
// program as discrete values, never through a shell.
type ServerCommand struct {
	Command string
	Args    []string
	// Env entries (KEY=value) are appended to the parent environment.
	Env []string
	Dir string
}

func (sc ServerCommand) String() string {
	if len(sc.Args) == 0 {
		return sc.Command
	}
	return fmt.Sprintf("%s %v", sc.Command, sc.Args)
}

// Connect launches the server, binds its stdio and completes the handshake.
// Any failure is returned as a *ConnectionError and the child is reaped.
func Connect(ctx context.Context, sc ServerCommand, opts ...Option) (*Client, error) {
	if sc.Command == "" {
		return nil, &ConnectionError{Err: errors.New("no server command configured")}
	}

	probe := &Client{closeTimeout: DefaultCloseTimeout}
	for _, opt := range opts {
		opt(probe)
	}

	proc, conn, err := spawn(sc, probe.log(), probe.closeTimeout)
	if err != nil {
		return nil, &ConnectionError{Command: sc.Command, Err: err}
	}

	c := newClient(conn, opts...)
	c.proc = proc
	if err := c.handshake(ctx); err != nil {
		_ = c.Close()
		return nil, &ConnectionError{Command: sc.Command, Err: err}
	}
	return c, nil
}

type process struct {
	cmd *exec.Cmd
}

func spawn(sc ServerCommand, logger *slog.Logger, waitDelay time.Duration) (*process, *jsonrpc.Conn, error) {
	cmd := exec.Command(sc.Command, sc.Args...)
	cmd.Dir = sc.Dir
	cmd.Env = append(os.Environ(), sc.Env...)
	cmd.Stderr = &lineLogger{logger: logger.With("source", "server")}
	cmd.WaitDelay = waitDelay

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	logger.Debug("server started", "command", sc.String(), "pid", cmd.Process.Pid)
	return &process{cmd: cmd}, jsonrpc.NewConn(stdout, stdin, closeAll{stdin, stdout}), nil
}

// stop waits for the child to exit on its own after its stdin was closed and
// kills it once timeout has passed.
func (p *process) stop(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = p.cmd.Process.Kill()
		return <-done
	}
}

type closeAll []io.Closer

func (cs closeAll) Close() error {
	var errs []error
	for _, c := range cs {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// lineLogger forwards a child's stderr to a logger one line at a time.
type lineLogger struct {
	logger *slog.Logger
	mu     sync.Mutex
	buf    []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		if line := bytes.TrimRight(l.buf[:i], "\r"); len(line) > 0 {
			l.logger.Info(string(line))
		}
		l.buf = l.buf[i+1:]
	}
	return len(p), nil
}
