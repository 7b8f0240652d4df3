// Package tools defines tool contracts, the server-side tool registry, and the
// built-in tools exposed by `agent serve`.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - Descriptor: the immutable wire view {name, description, input_schema}.
//   - Registry: insertion-ordered name -> definition map; List and Dispatch.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Built-in tools: echo, read_file, list_files (non-recursive), edit_file, run_command.
//
// Invariants:
//   - Dispatch never panics and never returns a transport-level fault; unknown tools,
//     schema violations, and handler failures all come back as Result.Err.
//   - A frozen registry rejects Register; servers freeze before serving.
package tools
