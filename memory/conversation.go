package memory

import (
	"fmt"
	"slices"
)

// Conversation is an ordered message history. It is not safe for concurrent
// use; one turn runs at a time.
type Conversation struct {
	msgs []Message
}

func NewConversation(msgs ...Message) *Conversation {
	return &Conversation{msgs: slices.Clone(msgs)}
}

func (c *Conversation) Append(msgs ...Message) {
	c.msgs = append(c.msgs, msgs...)
}

// Messages returns a copy of the history, oldest first.
func (c *Conversation) Messages() []Message {
	return slices.Clone(c.msgs)
}

func (c *Conversation) Len() int { return len(c.msgs) }

// Last returns the newest message.
func (c *Conversation) Last() (Message, bool) {
	if len(c.msgs) == 0 {
		return Message{}, false
	}
	return c.msgs[len(c.msgs)-1], true
}

// Truncate drops every message at index n and later.
func (c *Conversation) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(c.msgs) {
		clear(c.msgs[n:])
		c.msgs = c.msgs[:n]
	}
}

// Reset empties the history.
func (c *Conversation) Reset() { c.Truncate(0) }

// Validate checks that every assistant tool call is answered, in order, by the
// leading tool_result segments of the next message.
func (c *Conversation) Validate() error {
	for i, m := range c.msgs {
		if len(m.ToolCalls()) == 0 {
			continue
		}
		if m.Role != RoleAssistant {
			return fmt.Errorf("message %d: tool calls in a %s message", i, m.Role)
		}
		if i+1 >= len(c.msgs) {
			return fmt.Errorf("message %d: tool calls without results", i)
		}
		if err := Answers(m, c.msgs[i+1]); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// Answers reports whether reply is a user message whose leading tool_result
// segments answer the tool calls of call, in order.
func Answers(call, reply Message) error {
	calls := call.ToolCalls()
	if reply.Role != RoleUser {
		return fmt.Errorf("tool calls followed by a %s message", reply.Role)
	}
	if len(reply.Segments) < len(calls) {
		return fmt.Errorf("%d tool calls but %d segments in reply", len(calls), len(reply.Segments))
	}
	for j, c := range calls {
		res := reply.Segments[j]
		if res.Kind != KindToolResult || res.ToolCallID != c.ID {
			return fmt.Errorf("tool call %q has no matching result at position %d", c.ID, j)
		}
	}
	return nil
}
