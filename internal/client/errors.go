package client

import (
	"errors"
	"fmt"
)

// ErrClosed is wrapped by TransportError for calls made after Close.
var ErrClosed = errors.New("client: closed")

// ConnectionError reports that the server could not be started or the
// handshake did not complete.
type ConnectionError struct {
	Command string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("connect: %v", e.Err)
	}
	return fmt.Sprintf("connect to %q: %v", e.Command, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransportError reports a stream-level failure. The connection is unusable
// afterwards.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RPCError is a JSON-RPC error response from the server.
type RPCError struct {
	Method  string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: server error %d: %s", e.Method, e.Code, e.Message)
}
