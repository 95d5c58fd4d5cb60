package windowing

import (
	"fmt"
	"os"

	"github.com/petasbytes/go-mcp-agent/memory"
)

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupPair
)

// Group describes a contiguous span of messages [Start, End) in the original slice.
// Kind indicates whether it is a singleton or a validated pair.
type Group struct {
	Kind  GroupKind
	Start int // inclusive index into msgs
	End   int // exclusive index into msgs
}

// GroupMessages groups messages into atomic units that keep tool exchanges whole.
// Invariants:
// - A pair is an assistant tool request followed directly by one tool message per call.
// - Completeness: the tool messages answer exactly the request's call ids, nothing more.
// - Failure results group the same way as successful ones.
func GroupMessages(msgs []memory.Message) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		m := msgs[i]
		if m.IsToolRequest() {
			want := callIDs(m)
			end := i + 1
			have := make(map[string]struct{}, len(want))
			for end < len(msgs) && msgs[end].Role == memory.RoleTool {
				have[msgs[end].ToolCallID] = struct{}{}
				end++
			}
			switch {
			case end == i+1:
				vlogf("exclude pair: reason=not_followed_by_tool idx=%d", i)
			case !coversAll(have, want):
				vlogf("exclude pair: reason=missing_results idx=%d", i)
			case !coversAll(want, have):
				vlogf("exclude pair: reason=extra_results idx=%d", i)
			default:
				groups = append(groups, Group{Kind: GroupPair, Start: i, End: end})
				i = end
				continue
			}
		}
		// Fallback: singleton
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

func callIDs(m memory.Message) map[string]struct{} {
	ids := make(map[string]struct{}, len(m.ToolCalls))
	for _, c := range m.ToolCalls {
		ids[c.ID] = struct{}{}
	}
	return ids
}

// coversAll checks that every id in required is present in have.
func coversAll(have, required map[string]struct{}) bool {
	for id := range required {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

// minimal verbose logging when AGT_VERBOSE_WINDOW_LOGS=1
var verbose = os.Getenv("AGT_VERBOSE_WINDOW_LOGS") == "1"

func vlogf(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[windowing] "+format+"\n", args...)
	}
}
