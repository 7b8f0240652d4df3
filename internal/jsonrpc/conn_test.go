package jsonrpc_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/toolbridge/internal/jsonrpc"
)

func TestPipe_RequestResponseRoundTrip(t *testing.T) {
	a, b := jsonrpc.Pipe()
	defer a.Close()
	defer b.Close()

	req, err := jsonrpc.NewRequest(7, "tools/call", map[string]any{"name": "echo"})
	require.NoError(t, err)

	go func() { _ = a.Send(req) }()

	got, err := b.Receive()
	require.NoError(t, err)
	assert.True(t, got.IsRequest())
	assert.Equal(t, "tools/call", got.Method)
	assert.Equal(t, "7", string(got.ID))
	assert.JSONEq(t, `{"name":"echo"}`, string(got.Params))

	resp, err := jsonrpc.NewResponse(got.ID, map[string]string{"ok": "yes"})
	require.NoError(t, err)
	go func() { _ = b.Send(resp) }()

	back, err := a.Receive()
	require.NoError(t, err)
	assert.True(t, back.IsResponse())
	assert.Nil(t, back.Error)
	assert.JSONEq(t, `{"ok":"yes"}`, string(back.Result))
}

func TestSend_CompactsIndentedRawFields(t *testing.T) {
	var out bytes.Buffer
	c := jsonrpc.NewConn(strings.NewReader(""), &out, nil)

	m, err := jsonrpc.NewNotification("notify", nil)
	require.NoError(t, err)
	m.Params = []byte("{\n  \"a\": 1\n}")
	require.NoError(t, c.Send(m))

	frame := out.String()
	assert.Equal(t, 1, strings.Count(frame, "\n"), "frame must be a single line")
	assert.True(t, strings.HasSuffix(frame, "\n"))
	assert.Contains(t, frame, `"params":{"a":1}`)
}

func TestReceive_SkipsBlankLines(t *testing.T) {
	in := "\n\r\n{\"jsonrpc\":\"2.0\",\"method\":\"ping\",\"id\":1}\n"
	c := jsonrpc.NewConn(strings.NewReader(in), io.Discard, nil)

	m, err := c.Receive()
	require.NoError(t, err)
	assert.Equal(t, "ping", m.Method)

	_, err = c.Receive()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReceive_MalformedFrames(t *testing.T) {
	cases := map[string]string{
		"not json":      "hello there\n",
		"array":         "[1,2,3]\n",
		"wrong version": `{"jsonrpc":"1.0","method":"x","id":1}` + "\n",
		"empty object":  `{"jsonrpc":"2.0"}` + "\n",
		"result+error":  `{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":1,"message":"x"}}` + "\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			c := jsonrpc.NewConn(strings.NewReader(in), io.Discard, nil)
			_, err := c.Receive()
			require.Error(t, err)
			assert.True(t, errors.Is(err, jsonrpc.ErrMalformedFrame), "got %v", err)
		})
	}
}

// endless yields 'a' forever without a newline and counts what it handed out.
type endless struct{ n int }

func (e *endless) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'a'
	}
	e.n += len(p)
	return len(p), nil
}

func TestReceive_FrameLimitBoundsReads(t *testing.T) {
	src := &endless{}
	conn := jsonrpc.NewConn(src, io.Discard, nil)
	conn.SetMaxFrameSize(1024)

	_, err := conn.Receive()
	require.ErrorIs(t, err, jsonrpc.ErrMalformedFrame)
	assert.Less(t, src.n, 1024+8192, "reader consumed far past the limit")
}

func TestReceive_FrameAtLimit(t *testing.T) {
	frame := `{"jsonrpc":"2.0","method":"ping"}` + "\n"
	conn := jsonrpc.NewConn(strings.NewReader(frame+frame), io.Discard, nil)
	conn.SetMaxFrameSize(len(frame))

	for i := 0; i < 2; i++ {
		msg, err := conn.Receive()
		require.NoError(t, err)
		assert.Equal(t, "ping", msg.Method)
	}
	_, err := conn.Receive()
	assert.ErrorIs(t, err, io.EOF)

	conn = jsonrpc.NewConn(strings.NewReader(frame), io.Discard, nil)
	conn.SetMaxFrameSize(len(frame) - 1)
	_, err = conn.Receive()
	assert.ErrorIs(t, err, jsonrpc.ErrMalformedFrame)
}

func TestReceive_PrematureClose(t *testing.T) {
	c := jsonrpc.NewConn(strings.NewReader(`{"jsonrpc":"2.0","method":"pi`), io.Discard, nil)
	_, err := c.Receive()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestClose_IdempotentAndUnblocksPeer(t *testing.T) {
	a, b := jsonrpc.Pipe()

	errCh := make(chan error, 1)
	go func() {
		_, err := b.Receive()
		errCh <- err
	}()

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	err := <-errCh
	assert.ErrorIs(t, err, io.EOF)

	m, _ := jsonrpc.NewNotification("x", nil)
	assert.ErrorIs(t, a.Send(m), jsonrpc.ErrClosed)
	_, err = a.Receive()
	assert.ErrorIs(t, err, jsonrpc.ErrClosed)
	_ = b.Close()
}

func TestMessageKinds(t *testing.T) {
	req, _ := jsonrpc.NewRequest(1, "tools/list", nil)
	note, _ := jsonrpc.NewNotification("notifications/initialized", nil)
	resp := jsonrpc.NewErrorResponse(nil, jsonrpc.CodeParseError, "bad")

	assert.True(t, req.IsRequest())
	assert.False(t, req.IsNotification())
	assert.True(t, note.IsNotification())
	assert.True(t, resp.IsResponse())
	assert.Equal(t, "null", string(resp.ID))
	assert.Contains(t, resp.Error.Error(), "-32700")
}
