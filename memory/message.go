package memory

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SegmentKind tags the variant held by a Segment.
type SegmentKind string

const (
	KindText       SegmentKind = "text"
	KindToolCall   SegmentKind = "tool_call"
	KindToolResult SegmentKind = "tool_result"
)

// Segment is one ordered piece of a message.
//
//   - text: Text
//   - tool_call: ID, Name, Input
//   - tool_result: ToolCallID, Text, IsError
type Segment struct {
	Kind SegmentKind

	Text string

	ID    string
	Name  string
	Input json.RawMessage

	ToolCallID string
	IsError    bool
}

func TextSegment(text string) Segment {
	return Segment{Kind: KindText, Text: text}
}

func ToolCallSegment(id, name string, input json.RawMessage) Segment {
	return Segment{Kind: KindToolCall, ID: id, Name: name, Input: input}
}

func ToolResultSegment(toolCallID, text string, isError bool) Segment {
	return Segment{Kind: KindToolResult, ToolCallID: toolCallID, Text: text, IsError: isError}
}

// Message is one entry of the history.
type Message struct {
	Role     Role
	Segments []Segment
}

// UserText is a user message holding a single text segment.
func UserText(text string) Message {
	return Message{Role: RoleUser, Segments: []Segment{TextSegment(text)}}
}

// ToolCalls returns the tool_call segments of m in document order.
func (m Message) ToolCalls() []Segment {
	var out []Segment
	for _, s := range m.Segments {
		if s.Kind == KindToolCall {
			out = append(out, s)
		}
	}
	return out
}

// Text joins the text segments of m.
func (m Message) Text() string {
	var parts []string
	for _, s := range m.Segments {
		if s.Kind == KindText {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, "")
}
