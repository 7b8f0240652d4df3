// Package jsonrpc frames JSON-RPC 2.0 messages over a duplex byte stream.
//
// Framing:
//   - One JSON object per line, terminated by '\n' (the MCP stdio framing).
//   - Frames never contain raw newlines; encoded payloads are compacted before writing.
//
// Failure:
//   - A frame that is not a JSON-RPC 2.0 object yields ErrMalformedFrame.
//   - Stream closure inside a frame yields io.ErrUnexpectedEOF; at a boundary, io.EOF.
//   - There is no partial-frame recovery; callers treat any Receive error as fatal to the Conn.
package jsonrpc
