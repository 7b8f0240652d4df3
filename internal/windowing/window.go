package windowing

import (
	"github.com/petasbytes/toolbridge/memory"
)

// Stats describes a Fit call.
type Stats struct {
	Budget int
	// Total is the estimated cost of the included groups.
	Total          int
	IncludedGroups int
	SkippedGroups  int
	// OverBudgetNewest is set when the newest group alone exceeds Budget;
	// the window is then empty.
	OverBudgetNewest bool
}

// Fit returns the longest suffix of msgs made of whole groups whose estimated
// cost is within budget. The result aliases msgs.
func Fit(msgs []memory.Message, budget int, c TokenCounter) ([]memory.Message, Stats) {
	stats := Stats{Budget: budget}
	if len(msgs) == 0 {
		return nil, stats
	}
	groups := Groups(msgs)

	start := len(msgs)
	for i := len(groups) - 1; i >= 0; i-- {
		n := cost(c, groups[i], msgs)
		if stats.Total+n > budget {
			break
		}
		stats.Total += n
		stats.IncludedGroups++
		start = groups[i].Start
	}
	stats.SkippedGroups = len(groups) - stats.IncludedGroups
	if stats.IncludedGroups == 0 {
		stats.OverBudgetNewest = true
		return nil, stats
	}
	return msgs[start:], stats
}

// StartAtUser drops leading groups that open with an assistant message so the
// window begins with a user message.
func StartAtUser(msgs []memory.Message) []memory.Message {
	for _, g := range Groups(msgs) {
		if msgs[g.Start].Role == memory.RoleUser {
			return msgs[g.Start:]
		}
	}
	return nil
}
