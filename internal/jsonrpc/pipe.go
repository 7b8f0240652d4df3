package jsonrpc

import (
	"errors"
	"io"
	"os"
)

// Pipe returns two Conns wired to each other in memory. Closing one side makes
// the peer's Receive return io.EOF.
func Pipe() (*Conn, *Conn) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a := NewConn(ar, aw, closers{ar, aw})
	b := NewConn(br, bw, closers{br, bw})
	return a, b
}

// Stdio returns a Conn over the process's stdin/stdout. Close closes stdin only;
// stdout stays open for anything still flushing.
func Stdio() *Conn {
	return NewConn(os.Stdin, os.Stdout, os.Stdin)
}

type closers []io.Closer

func (cs closers) Close() error {
	var errs []error
	for _, c := range cs {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
