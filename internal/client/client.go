// Package client connects to a tool server, caches its catalogue and relays
// tool calls. Tool failures reported by the server are returned as data in
// Result; only stream and handshake faults are Go errors.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petasbytes/toolbridge/internal/jsonrpc"
	"github.com/petasbytes/toolbridge/internal/jsonx"
	"github.com/petasbytes/toolbridge/internal/protocol"
	"github.com/petasbytes/toolbridge/tools"
)

// DefaultCloseTimeout is how long Close waits for a spawned server to exit
// before killing it.
const DefaultCloseTimeout = 3 * time.Second

// DefaultHandshakeTimeout bounds initialize plus tools/list when no
// WithHandshakeTimeout option is given.
const DefaultHandshakeTimeout = 30 * time.Second

// Result is a tool call outcome exactly as the server reported it.
type Result struct {
	Text    string
	IsError bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a structured logger for the Client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClientInfo sets the identity sent during initialize.
func WithClientInfo(name, version string) Option {
	return func(c *Client) {
		c.info = protocol.Implementation{Name: name, Version: version}
	}
}

// WithHandshakeTimeout bounds the connect handshake. Zero or less disables
// the bound and leaves only ctx.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.handshakeTimeout = d
	}
}

// WithCloseTimeout bounds how long Close waits for a spawned server.
func WithCloseTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.closeTimeout = d
		}
	}
}

// Client is a connected protocol client. It is safe for concurrent use.
type Client struct {
	conn         *jsonrpc.Conn
	proc         *process
	logger       *slog.Logger
	info         protocol.Implementation
	closeTimeout time.Duration
	// handshakeTimeout bounds initialize and tools/list; <= 0 means none.
	handshakeTimeout time.Duration

	nextID atomic.Int64

	mu      sync.Mutex
	pending map[string]chan *jsonrpc.Message
	readErr error
	done    chan struct{}

	serverInfo protocol.Implementation
	catalogue  []tools.Descriptor

	closeOnce sync.Once
	closeErr  error
}

func newClient(conn *jsonrpc.Conn, opts ...Option) *Client {
	c := &Client{
		conn:             conn,
		info:             protocol.Implementation{Name: "toolbridge-client", Version: "0.1.0"},
		closeTimeout:     DefaultCloseTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		pending:          make(map[string]chan *jsonrpc.Message),
		done:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

// Attach performs the handshake over an existing connection and caches the
// server's catalogue. On failure conn is closed.
func Attach(ctx context.Context, conn *jsonrpc.Conn, opts ...Option) (*Client, error) {
	c := newClient(conn, opts...)
	if err := c.handshake(ctx); err != nil {
		_ = c.Close()
		return nil, &ConnectionError{Err: err}
	}
	return c, nil
}

// log returns the Client's logger, falling back to the default slog logger.
func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

func (c *Client) handshake(ctx context.Context) error {
	if c.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.handshakeTimeout)
		defer cancel()
	}
	resp, err := c.call(ctx, protocol.MethodInitialize, protocol.InitializeParams{
		ProtocolVersion: protocol.Version,
		Capabilities:    json.RawMessage(`{}`),
		ClientInfo:      c.info,
	})
	if err != nil {
		return err
	}
	var init protocol.InitializeResult
	if err := jsonx.Unmarshal(resp.Result, &init); err != nil {
		return fmt.Errorf("decode initialize result: %w", err)
	}
	c.serverInfo = init.ServerInfo

	note, err := jsonrpc.NewNotification(protocol.MethodInitialized, nil)
	if err != nil {
		return err
	}
	if err := c.conn.Send(note); err != nil {
		return &TransportError{Op: protocol.MethodInitialized, Err: err}
	}

	resp, err = c.call(ctx, protocol.MethodListTools, nil)
	if err != nil {
		return err
	}
	var list protocol.ListToolsResult
	if err := jsonx.Unmarshal(resp.Result, &list); err != nil {
		return fmt.Errorf("decode tools/list result: %w", err)
	}
	c.catalogue = list.Tools

	c.log().Info("connected", "server", init.ServerInfo.Name, "server_version", init.ServerInfo.Version, "tools", len(list.Tools))
	return nil
}

// Tools returns a copy of the catalogue cached at connect time.
func (c *Client) Tools() []tools.Descriptor {
	out := make([]tools.Descriptor, len(c.catalogue))
	for i, d := range c.catalogue {
		out[i] = tools.Descriptor{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: append(json.RawMessage(nil), d.InputSchema...),
		}
	}
	return out
}

// ServerInfo returns the identity the server announced.
func (c *Client) ServerInfo() protocol.Implementation { return c.serverInfo }

// CallTool invokes a tool and returns the server's result verbatim. Empty args
// are sent as an empty object.
func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	resp, err := c.call(ctx, protocol.MethodCallTool, protocol.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return Result{}, err
	}
	var out protocol.CallToolResult
	if err := jsonx.Unmarshal(resp.Result, &out); err != nil {
		return Result{}, &TransportError{Op: protocol.MethodCallTool, Err: fmt.Errorf("decode result: %w", err)}
	}
	return Result{Text: out.Text(), IsError: out.IsError}, nil
}

// Ping checks that the server is still answering.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, protocol.MethodPing, nil)
	return err
}

func (c *Client) call(ctx context.Context, method string, params any) (*jsonrpc.Message, error) {
	id := c.nextID.Add(1)
	req, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}
	key := idKey(req.ID)
	ch := make(chan *jsonrpc.Message, 1)

	c.mu.Lock()
	if c.readErr != nil {
		err := c.readErr
		c.mu.Unlock()
		return nil, &TransportError{Op: method, Err: err}
	}
	c.pending[key] = ch
	c.mu.Unlock()

	if err := c.conn.Send(req); err != nil {
		c.forget(key)
		if errors.Is(err, jsonrpc.ErrClosed) {
			err = ErrClosed
		}
		return nil, &TransportError{Op: method, Err: err}
	}

	select {
	case resp := <-ch:
		return checkResponse(method, resp)
	case <-c.done:
		// A response may have been delivered just before the reader stopped.
		select {
		case resp := <-ch:
			return checkResponse(method, resp)
		default:
		}
		c.mu.Lock()
		err := c.readErr
		c.mu.Unlock()
		return nil, &TransportError{Op: method, Err: err}
	case <-ctx.Done():
		c.forget(key)
		return nil, ctx.Err()
	}
}

func checkResponse(method string, resp *jsonrpc.Message) (*jsonrpc.Message, error) {
	if resp.Error != nil {
		return nil, &RPCError{Method: method, Code: resp.Error.Code, Message: resp.Error.Message}
	}
	return resp, nil
}

func (c *Client) forget(key string) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

func idKey(id json.RawMessage) string {
	return strings.TrimSpace(string(id))
}

// readLoop delivers responses to waiting calls until the stream ends.
func (c *Client) readLoop() {
	for {
		msg, err := c.conn.Receive()
		if err != nil {
			if errors.Is(err, jsonrpc.ErrClosed) {
				err = ErrClosed
			}
			c.mu.Lock()
			c.readErr = err
			c.pending = make(map[string]chan *jsonrpc.Message)
			c.mu.Unlock()
			close(c.done)
			return
		}

		switch {
		case msg.IsResponse():
			key := idKey(msg.ID)
			c.mu.Lock()
			ch, ok := c.pending[key]
			delete(c.pending, key)
			c.mu.Unlock()
			if !ok {
				c.log().Warn("response for unknown request", "id", key)
				continue
			}
			ch <- msg
		case msg.IsRequest():
			c.log().Debug("rejecting server request", "method", msg.Method)
			_ = c.conn.Send(jsonrpc.NewErrorResponse(msg.ID, jsonrpc.CodeMethodNotFound, "method not found: "+msg.Method))
		default:
			c.log().Debug("server notification", "method", msg.Method)
		}
	}
}

// Close shuts the connection down and reaps a spawned server, killing it if it
// has not exited within the close timeout. Calling Close again is a no-op.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
		<-c.done
		if c.proc != nil {
			if err := c.proc.stop(c.closeTimeout); err != nil {
				c.log().Debug("server exit", "error", err)
			}
		}
	})
	return c.closeErr
}

// Done is closed when the connection to the server has ended.
func (c *Client) Done() <-chan struct{} { return c.done }
