// Package windowing trims a conversation to the newest messages that fit a
// token budget without separating a tool call from its result.
package windowing

import (
	"log/slog"

	"github.com/petasbytes/toolbridge/memory"
)

// Group is a span of messages [Start, End) that is kept or dropped as a unit.
// A paired group is an assistant message with tool calls plus the user
// message that answers them.
type Group struct {
	Start, End int
	Paired     bool
}

// Groups partitions msgs into consecutive groups. A tool-call message whose
// next message does not answer it stays a group of its own.
func Groups(msgs []memory.Message) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); i++ {
		m := msgs[i]
		if m.Role == memory.RoleAssistant && len(m.ToolCalls()) > 0 && i+1 < len(msgs) {
			err := memory.Answers(m, msgs[i+1])
			if err == nil {
				groups = append(groups, Group{Start: i, End: i + 2, Paired: true})
				i++
				continue
			}
			slog.Debug("windowing: unpaired tool calls", "index", i, "reason", err)
		}
		groups = append(groups, Group{Start: i, End: i + 1})
	}
	return groups
}
