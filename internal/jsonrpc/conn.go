package jsonrpc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/petasbytes/toolbridge/internal/jsonx"
)

// MaxFrameSize is the default bound on a single frame. Larger frames are
// treated as malformed.
const MaxFrameSize = 16 << 20

var (
	// ErrMalformedFrame reports a frame that is not a JSON-RPC 2.0 object.
	ErrMalformedFrame = errors.New("jsonrpc: malformed frame")
	// ErrClosed is returned by Send and Receive after Close.
	ErrClosed = errors.New("jsonrpc: connection closed")
)

// Conn sends and receives framed messages over one duplex stream.
// Send is safe for concurrent use; Receive must be called from a single goroutine.
type Conn struct {
	r io.Reader
	w io.Writer
	c io.Closer

	br       *bufio.Reader
	maxFrame int
	wmu      sync.Mutex

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// NewConn wraps a reader/writer pair. closer, if non-nil, is closed by Close and
// should unblock a pending Receive.
func NewConn(r io.Reader, w io.Writer, closer io.Closer) *Conn {
	return &Conn{
		r:    r,
		w:    w,
		c:    closer,
		br:       bufio.NewReader(r),
		maxFrame: MaxFrameSize,
		done:     make(chan struct{}),
	}
}

// SetMaxFrameSize changes the frame bound. It must be called before the first
// Receive; n <= 0 restores MaxFrameSize.
func (c *Conn) SetMaxFrameSize(n int) {
	if n <= 0 {
		n = MaxFrameSize
	}
	c.maxFrame = n
}

// Send writes m as one frame.
func (c *Conn) Send(m *Message) error {
	if c.isClosed() {
		return ErrClosed
	}
	if m.JSONRPC == "" {
		m.JSONRPC = Version
	}
	b, err := jsonx.Marshal(m)
	if err != nil {
		return fmt.Errorf("jsonrpc: encode: %w", err)
	}
	// Raw message fields are embedded verbatim; strip any indentation so the
	// frame stays on one line.
	if bytes.IndexByte(b, '\n') >= 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, b); err != nil {
			return fmt.Errorf("jsonrpc: compact: %w", err)
		}
		b = buf.Bytes()
	}
	b = append(b, '\n')

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.w.Write(b); err != nil {
		if c.isClosed() {
			return ErrClosed
		}
		return fmt.Errorf("jsonrpc: write: %w", err)
	}
	return nil
}

// Receive blocks until the next frame arrives and decodes it.
func (c *Conn) Receive() (*Message, error) {
	for {
		line, err := c.readFrame()
		if err != nil {
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		return decodeFrame(line)
	}
}

// readFrame reads up to the next newline, never buffering more than maxFrame
// bytes of one frame.
func (c *Conn) readFrame() ([]byte, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	var line []byte
	for {
		chunk, err := c.br.ReadSlice('\n')
		if len(line)+len(chunk) > c.maxFrame {
			return nil, fmt.Errorf("%w: frame exceeds %d bytes", ErrMalformedFrame, c.maxFrame)
		}
		line = append(line, chunk...)
		switch {
		case err == nil:
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case c.isClosed():
			return nil, ErrClosed
		case errors.Is(err, io.EOF):
			if len(bytes.TrimSpace(line)) == 0 {
				return nil, io.EOF
			}
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, fmt.Errorf("jsonrpc: read: %w", err)
		}
	}
}

func decodeFrame(line []byte) (*Message, error) {
	if !gjson.ValidBytes(line) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedFrame)
	}
	root := gjson.ParseBytes(line)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: frame is not an object", ErrMalformedFrame)
	}
	if v := root.Get("jsonrpc").String(); v != Version {
		return nil, fmt.Errorf("%w: unsupported jsonrpc version %q", ErrMalformedFrame, v)
	}
	var m Message
	if err := jsonx.Unmarshal(line, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if m.Method == "" && len(m.ID) == 0 {
		return nil, fmt.Errorf("%w: neither method nor id", ErrMalformedFrame)
	}
	if m.Result != nil && m.Error != nil {
		return nil, fmt.Errorf("%w: response has both result and error", ErrMalformedFrame)
	}
	return &m, nil
}

// Close releases the underlying stream. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.c != nil {
			c.closeErr = c.c.Close()
		}
	})
	return c.closeErr
}

// Done is closed once Close has been called.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
