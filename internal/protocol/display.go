package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"

	"github.com/petasbytes/toolbridge/internal/jsonx"
	"github.com/petasbytes/toolbridge/tools"
)

// ErrorPrefix starts the text of every failed tool call.
const ErrorPrefix = "Error: "

// Display renders a handler value as text. Strings pass through unchanged,
// scalars use their canonical form and everything else is encoded as indented
// JSON, so decoding the text yields the original value.
func Display(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.RawMessage:
		return string(x), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return cast.ToStringE(x)
	}
	b, err := jsonx.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render %T: %w", v, err)
	}
	return string(b), nil
}

// TextResult wraps text in a successful CallToolResult.
func TextResult(text string) CallToolResult {
	return CallToolResult{Content: []Content{{Type: ContentTypeText, Text: text}}}
}

// ErrorResult turns err into a displayable failed CallToolResult.
func ErrorResult(err error) CallToolResult {
	return CallToolResult{
		Content: []Content{{Type: ContentTypeText, Text: ErrorPrefix + err.Error()}},
		IsError: true,
	}
}

// FromDispatch converts a registry outcome into its wire result. A value that
// cannot be rendered is reported as a failure.
func FromDispatch(res tools.Result) CallToolResult {
	if res.Err != nil {
		return ErrorResult(res.Err)
	}
	text, err := Display(res.Value)
	if err != nil {
		return ErrorResult(err)
	}
	return TextResult(text)
}
