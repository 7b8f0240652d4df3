// Package memory holds the in-process conversation history of one chat
// session: user and assistant messages made of ordered segments (text, tool
// calls and tool results). History lives only as long as the process.
package memory
