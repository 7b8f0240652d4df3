package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/petasbytes/toolbridge/internal/jsonx"
)

// Handler runs a tool. It may return a string (shown as-is) or any
// JSON-serialisable value. Side effects must be fully reflected in the
// returned value or error.
type Handler func(ctx context.Context, input json.RawMessage) (any, error)

// ToolDefinition pairs a declarative tool description with its handler.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Function    Handler
}

// Descriptor is the advertised, handler-free view of a tool.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// UnmarshalJSON also accepts the schema under "inputSchema", the key MCP
// servers use; "input_schema" wins when both are present.
func (d *Descriptor) UnmarshalJSON(b []byte) error {
	var wire struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		InputSchema json.RawMessage `json:"input_schema"`
		MCPSchema   json.RawMessage `json:"inputSchema"`
	}
	if err := jsonx.Unmarshal(b, &wire); err != nil {
		return err
	}
	schema := wire.InputSchema
	if len(schema) == 0 {
		schema = wire.MCPSchema
	}
	*d = Descriptor{Name: wire.Name, Description: wire.Description, InputSchema: schema}
	return nil
}

// Descriptor returns the wire view of d. The schema bytes are copied.
func (d ToolDefinition) Descriptor() Descriptor {
	return Descriptor{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: cloneRaw(d.InputSchema),
	}
}

// Define builds a ToolDefinition whose schema is reflected from T and whose
// handler receives the decoded input. Empty input decodes as the zero T.
func Define[T any](name, description string, fn func(ctx context.Context, in T) (any, error)) ToolDefinition {
	return ToolDefinition{
		Name:        name,
		Description: description,
		InputSchema: GenerateSchema[T](),
		Function: func(ctx context.Context, input json.RawMessage) (any, error) {
			var in T
			if len(bytes.TrimSpace(input)) > 0 {
				if err := jsonx.Unmarshal(input, &in); err != nil {
					return nil, fmt.Errorf("decode input: %w", err)
				}
			}
			return fn(ctx, in)
		},
	}
}

// emptyObjectSchema is used for tools registered without a schema.
var emptyObjectSchema = json.RawMessage(`{"type":"object"}`)

// GenerateSchema reflects T into a compact JSON Schema document.
func GenerateSchema[T any]() json.RawMessage {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	b, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("tools: generate schema for %T: %v", v, err))
	}
	return b
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}
