package protocol_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/toolbridge/internal/protocol"
	"github.com/petasbytes/toolbridge/tools"
)

func TestDisplay_StringPassesThrough(t *testing.T) {
	for _, s := range []string{"", "hi", "line1\nline2", `{"looks":"like json"}`} {
		got, err := protocol.Display(s)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestDisplay_Scalars(t *testing.T) {
	cases := map[string]any{
		"42":   42,
		"-7":   int64(-7),
		"true": true,
		"0.1":  0.1,
	}
	for want, in := range cases {
		got, err := protocol.Display(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDisplay_FloatIsLossless(t *testing.T) {
	for _, f := range []float64{0.1, 1.0 / 3, math.MaxFloat64, math.SmallestNonzeroFloat64} {
		got, err := protocol.Display(f)
		require.NoError(t, err)
		var back float64
		require.NoError(t, json.Unmarshal([]byte(got), &back))
		assert.Equal(t, f, back)
	}
}

func TestDisplay_StructuredValueIsLossless(t *testing.T) {
	type payload struct {
		Files []string       `json:"files"`
		Meta  map[string]any `json:"meta"`
		Count int            `json:"count"`
	}
	in := payload{
		Files: []string{"a.go", "b/"},
		Meta:  map[string]any{"nested": map[string]any{"ok": true}, "n": 3.5},
		Count: 2,
	}

	text, err := protocol.Display(in)
	require.NoError(t, err)

	var back payload
	require.NoError(t, json.Unmarshal([]byte(text), &back))
	assert.Equal(t, in.Files, back.Files)
	assert.Equal(t, in.Count, back.Count)
	assert.Equal(t, in.Meta, back.Meta)
}

func TestDisplay_RawJSONIsKept(t *testing.T) {
	got, err := protocol.Display(json.RawMessage(`{"a":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,2]}`, got)
}

func TestDisplay_NilIsEmpty(t *testing.T) {
	got, err := protocol.Display(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDisplay_Unencodable(t *testing.T) {
	_, err := protocol.Display(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestFromDispatch(t *testing.T) {
	ok := protocol.FromDispatch(tools.Result{Value: "hi"})
	assert.False(t, ok.IsError)
	assert.Equal(t, "hi", ok.Text())

	failed := protocol.FromDispatch(tools.Result{Err: errors.New("disk on fire")})
	assert.True(t, failed.IsError)
	assert.Equal(t, "Error: disk on fire", failed.Text())

	bad := protocol.FromDispatch(tools.Result{Value: make(chan int)})
	assert.True(t, bad.IsError)
	assert.Contains(t, bad.Text(), protocol.ErrorPrefix)
}

func TestCallToolResult_WireShape(t *testing.T) {
	b, err := json.Marshal(protocol.TextResult("out"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":[{"type":"text","text":"out"}],"isError":false}`, string(b))

	b, err = json.Marshal(protocol.ErrorResult(errors.New("nope")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":[{"type":"text","text":"Error: nope"}],"isError":true}`, string(b))
}

func TestCallToolResult_TextJoinsParts(t *testing.T) {
	r := protocol.CallToolResult{Content: []protocol.Content{
		{Type: "text", Text: "a"},
		{Type: "image", Text: "ignored"},
		{Type: "text", Text: "b"},
	}}
	assert.Equal(t, "a\nb", r.Text())
}

func TestListToolsResult_DescriptorsRoundTrip(t *testing.T) {
	in := protocol.ListToolsResult{Tools: []tools.Descriptor{
		tools.EchoDefinition.Descriptor(),
		{Name: "raw", Description: "", InputSchema: json.RawMessage(`{"type":"object","properties":{"p":{"type":"string","enum":["x","y"]}},"required":["p"]}`)},
	}}
	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out protocol.ListToolsResult
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out.Tools, 2)
	for i := range in.Tools {
		assert.Equal(t, in.Tools[i].Name, out.Tools[i].Name)
		assert.Equal(t, in.Tools[i].Description, out.Tools[i].Description)
		assert.JSONEq(t, string(in.Tools[i].InputSchema), string(out.Tools[i].InputSchema))
	}
}
