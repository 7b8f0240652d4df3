package provider

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cast"

	"github.com/petasbytes/toolbridge/internal/jsonx"
	"github.com/petasbytes/toolbridge/memory"
	"github.com/petasbytes/toolbridge/tools"
)

// messageParams converts history to API messages. Adjacent messages with the
// same role are merged, since the API expects roles to alternate.
func messageParams(msgs []memory.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := contentBlocks(m.Segments)
		if len(blocks) == 0 {
			continue
		}
		role := anthropic.MessageParamRoleUser
		if m.Role == memory.RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			continue
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}
	return out
}

func contentBlocks(segs []memory.Segment) []anthropic.ContentBlockParamUnion {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(segs))
	for _, s := range segs {
		switch s.Kind {
		case memory.KindText:
			// The API rejects empty text blocks.
			if s.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(s.Text))
			}
		case memory.KindToolCall:
			input := s.Input
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
				ID:    s.ID,
				Name:  s.Name,
				Input: input,
			}})
		case memory.KindToolResult:
			blocks = append(blocks, anthropic.NewToolResultBlock(s.ToolCallID, s.Text, s.IsError))
		}
	}
	return blocks
}

// toolParams converts catalogue descriptors to API tool definitions. Schema
// keywords other than properties and required are carried as extra fields.
func toolParams(descs []tools.Descriptor) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(descs))
	for _, d := range descs {
		schema, err := inputSchema(d.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", d.Name, err)
		}
		tool := &anthropic.ToolParam{Name: d.Name, InputSchema: schema}
		if d.Description != "" {
			tool.Description = anthropic.String(d.Description)
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: tool})
	}
	return out, nil
}

func inputSchema(raw json.RawMessage) (anthropic.ToolInputSchemaParam, error) {
	var schema anthropic.ToolInputSchemaParam
	if len(raw) == 0 {
		return schema, nil
	}
	var m map[string]any
	if err := jsonx.Unmarshal(raw, &m); err != nil {
		return schema, fmt.Errorf("decode input schema: %w", err)
	}
	if props, ok := m["properties"]; ok {
		schema.Properties = props
	}
	if req, ok := m["required"]; ok {
		r, err := cast.ToStringSliceE(req)
		if err != nil {
			return schema, fmt.Errorf("required: %w", err)
		}
		schema.Required = r
	}
	for k, v := range m {
		switch k {
		case "type", "properties", "required", "$schema", "$id":
			continue
		}
		if schema.ExtraFields == nil {
			schema.ExtraFields = make(map[string]any)
		}
		schema.ExtraFields[k] = v
	}
	return schema, nil
}

// fromResponse keeps text and tool_use blocks in document order.
func fromResponse(msg *anthropic.Message) memory.Message {
	out := memory.Message{Role: memory.RoleAssistant}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Segments = append(out.Segments, memory.TextSegment(v.Text))
		case anthropic.ToolUseBlock:
			input := json.RawMessage(v.JSON.Input.Raw())
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			out.Segments = append(out.Segments, memory.ToolCallSegment(v.ID, v.Name, input))
		}
	}
	return out
}
