// Package runner drives one conversational turn: it sends the history and the
// tool catalogue to a completion endpoint, relays the model's text, dispatches
// its tool calls through a ToolCaller and feeds the results back until the
// model answers without calling a tool.
//
// Invariant:
//   - an assistant message with tool calls is always followed by one user
//     message whose leading segments are the results, in call order.
//
// Flow:
//
//	user(text) -> assistant(text, tool_call...) -> user(tool_result...) -> assistant(text)
//
// The number of tool round-trips per turn is capped (MaxToolRounds) so a
// misbehaving model cannot loop forever.
package runner
