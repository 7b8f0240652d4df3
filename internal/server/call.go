package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petasbytes/toolbridge/internal/jsonrpc"
	"github.com/petasbytes/toolbridge/internal/jsonx"
	"github.com/petasbytes/toolbridge/internal/metrics"
	"github.com/petasbytes/toolbridge/internal/protocol"
	"github.com/petasbytes/toolbridge/internal/telemetry"
	"github.com/petasbytes/toolbridge/tools"
)

// callTool never fails at the protocol level. Bad params, unknown tools and
// handler errors all become displayable error results.
func (s *Server) callTool(ctx context.Context, msg *jsonrpc.Message) protocol.CallToolResult {
	var p protocol.CallToolParams
	if err := jsonx.Unmarshal(msg.Params, &p); err != nil || p.Name == "" {
		if err == nil {
			err = errors.New("missing tool name")
		}
		s.log().Warn("bad tools/call params", "error", err)
		return protocol.ErrorResult(fmt.Errorf("invalid tools/call params: %w", err))
	}

	start := time.Now()
	res := s.reg.Dispatch(ctx, p.Name, p.Arguments)
	out := protocol.FromDispatch(res)
	dur := time.Since(start)

	attrs := []any{"tool", p.Name, "duration", dur, "is_error", out.IsError}
	if res.Err != nil {
		s.log().Warn("tool call failed", append(attrs, "error", res.Err)...)
	} else {
		s.log().Info("tool call", attrs...)
	}

	text := out.Text()
	telemetry.Emit("tool_exec", map[string]any{
		"tool":        p.Name,
		"duration_ms": dur.Milliseconds(),
		"args_bytes":  len(p.Arguments),
		"output":      metrics.Measure(text).Fields(),
		"is_error":    out.IsError,
		"error_class": errorClass(res.Err, out.IsError),
	})
	return out
}

func errorClass(err error, isError bool) string {
	var ve *tools.ValidationError
	var he *tools.HandlerError
	switch {
	case err == nil && !isError:
		return ""
	case err == nil:
		return "render"
	case errors.Is(err, tools.ErrUnknownTool):
		return "unknown_tool"
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &he):
		return "handler"
	default:
		return "other"
	}
}
