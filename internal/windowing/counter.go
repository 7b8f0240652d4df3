package windowing

import (
	"unicode/utf8"

	"github.com/petasbytes/toolbridge/memory"
)

// TokenCounter estimates the input-token cost of a message.
type TokenCounter interface {
	Count(m memory.Message) int
}

// HeuristicCounter estimates deterministically from rune counts: text and
// tool results count their text, tool calls count name plus raw input, and
// every segment adds SegmentOverhead.
type HeuristicCounter struct{}

// SegmentOverhead is the fixed cost added per segment.
const SegmentOverhead = 4

func (HeuristicCounter) Count(m memory.Message) int {
	n := 0
	for _, s := range m.Segments {
		n += SegmentOverhead
		switch s.Kind {
		case memory.KindText, memory.KindToolResult:
			n += utf8.RuneCountInString(s.Text)
		case memory.KindToolCall:
			n += utf8.RuneCountInString(s.Name) + utf8.RuneCount(s.Input)
		}
	}
	return n
}

// cost sums c over the messages of g.
func cost(c TokenCounter, g Group, msgs []memory.Message) int {
	n := 0
	for _, m := range msgs[g.Start:g.End] {
		n += c.Count(m)
	}
	return n
}
