// Package server exposes a frozen tool registry over one jsonrpc.Conn.
//
// A Server moves Idle → Serving → Closed exactly once. Requests are handled
// strictly in arrival order. Tool failures of every kind come back as normal
// tools/call results with isError set; only stream-level faults end the loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/petasbytes/toolbridge/internal/jsonrpc"
	"github.com/petasbytes/toolbridge/internal/jsonx"
	"github.com/petasbytes/toolbridge/internal/protocol"
	"github.com/petasbytes/toolbridge/tools"
)

// State is the lifecycle stage of a Server.
type State int

const (
	Idle State = iota
	Serving
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Serving:
		return "serving"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrAlreadyBound is returned by Serve when the server has already been bound.
var ErrAlreadyBound = errors.New("server: already bound to a connection")

// Default identity announced in the initialize response.
const (
	DefaultName    = "toolbridge"
	DefaultVersion = "0.1.0"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a structured logger for the Server.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithInfo overrides the name and version reported to clients.
func WithInfo(name, version string) Option {
	return func(s *Server) {
		if name != "" {
			s.info.Name = name
		}
		if version != "" {
			s.info.Version = version
		}
	}
}

// Server answers protocol requests from a single client.
type Server struct {
	reg    *tools.Registry
	info   protocol.Implementation
	logger *slog.Logger

	mu    sync.Mutex
	state State
	conn  *jsonrpc.Conn
}

// New returns an Idle server for reg. The registry is frozen so its catalogue
// cannot change once clients can see it.
func New(reg *tools.Registry, opts ...Option) *Server {
	if reg == nil {
		panic("server: registry must not be nil")
	}
	reg.Freeze()
	s := &Server{
		reg:  reg,
		info: protocol.Implementation{Name: DefaultName, Version: DefaultVersion},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// log returns the Server's logger, falling back to the default slog logger.
func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// State reports the current lifecycle stage.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Serve binds conn and handles requests until the peer goes away, ctx is
// cancelled, Shutdown is called or the stream fails. A clean end of stream
// returns nil. The connection is always closed on return.
func (s *Server) Serve(ctx context.Context, conn *jsonrpc.Conn) error {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return ErrAlreadyBound
	}
	s.state = Serving
	s.conn = conn
	s.mu.Unlock()

	defer s.Shutdown()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s.log().Info("serving", "tools", s.reg.Len())
	for {
		msg, err := conn.Receive()
		if err != nil {
			return s.endOfStream(ctx, conn, err)
		}
		s.handle(ctx, conn, msg)
	}
}

func (s *Server) endOfStream(ctx context.Context, conn *jsonrpc.Conn, err error) error {
	switch {
	case errors.Is(err, io.EOF):
		s.log().Info("client disconnected")
		return nil
	case errors.Is(err, jsonrpc.ErrClosed):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return nil
	case errors.Is(err, jsonrpc.ErrMalformedFrame):
		s.log().Error("malformed frame, closing connection", "error", err)
		_ = conn.Send(jsonrpc.NewErrorResponse(nil, jsonrpc.CodeParseError, err.Error()))
		return fmt.Errorf("server: %w", err)
	default:
		s.log().Error("transport failure", "error", err)
		return fmt.Errorf("server: %w", err)
	}
}

// Shutdown closes the bound connection and moves the server to Closed. It is
// safe to call at any time and more than once.
func (s *Server) Shutdown() {
	s.mu.Lock()
	conn := s.conn
	s.state = Closed
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc.Conn, msg *jsonrpc.Message) {
	if msg.IsResponse() {
		s.log().Warn("ignoring unexpected response", "id", string(msg.ID))
		return
	}
	if msg.IsNotification() {
		s.log().Debug("notification", "method", msg.Method)
		return
	}

	result, rpcErr := s.dispatch(ctx, msg)
	var resp *jsonrpc.Message
	if rpcErr != nil {
		resp = &jsonrpc.Message{JSONRPC: jsonrpc.Version, ID: msg.ID, Error: rpcErr}
	} else {
		var err error
		resp, err = jsonrpc.NewResponse(msg.ID, result)
		if err != nil {
			resp = jsonrpc.NewErrorResponse(msg.ID, jsonrpc.CodeInternalError, err.Error())
		}
	}
	if err := conn.Send(resp); err != nil {
		s.log().Error("send response", "method", msg.Method, "error", err)
	}
}

func (s *Server) dispatch(ctx context.Context, msg *jsonrpc.Message) (any, *jsonrpc.Error) {
	switch msg.Method {
	case protocol.MethodInitialize:
		return s.initialize(msg)
	case protocol.MethodListTools:
		return protocol.ListToolsResult{Tools: s.reg.List()}, nil
	case protocol.MethodCallTool:
		return s.callTool(ctx, msg), nil
	case protocol.MethodPing:
		return struct{}{}, nil
	default:
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "method not found: " + msg.Method}
	}
}

func (s *Server) initialize(msg *jsonrpc.Message) (any, *jsonrpc.Error) {
	var p protocol.InitializeParams
	if len(msg.Params) > 0 {
		if err := jsonx.Unmarshal(msg.Params, &p); err != nil {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: err.Error()}
		}
	}
	s.log().Info("client initialized", "client", p.ClientInfo.Name, "client_version", p.ClientInfo.Version, "protocol", p.ProtocolVersion)
	return protocol.InitializeResult{
		ProtocolVersion: protocol.Version,
		Capabilities:    protocol.ServerCapabilities{Tools: &protocol.ToolsCapability{}},
		ServerInfo:      s.info,
	}, nil
}
