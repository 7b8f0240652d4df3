// Package protocol defines the method names and payloads exchanged between the
// tool server and its clients. The envelope is JSON-RPC 2.0 (see package
// jsonrpc); this package only describes what goes inside params and result.
//
// Tool call outcomes are always delivered as a CallToolResult. A failed call is
// not a JSON-RPC error: it is a normal result with IsError set and a text body
// starting with ErrorPrefix, so the model can read and react to it.
package protocol
