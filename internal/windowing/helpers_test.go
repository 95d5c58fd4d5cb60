package windowing_test

import (
	"github.com/petasbytes/go-mcp-agent/internal/windowing"
	"github.com/petasbytes/go-mcp-agent/memory"
)

func User(text string) memory.Message { return memory.UserMessage(text) }

func Asst(text string) memory.Message { return memory.AssistantMessage(text) }

// Req is an assistant tool request with one call per id; names and arguments are empty.
func Req(ids ...string) memory.Message {
	calls := make([]memory.ToolCall, len(ids))
	for i, id := range ids {
		calls[i] = memory.ToolCall{ID: id}
	}
	return memory.ToolRequestMessage("", calls)
}

func Res(id, content string) memory.Message { return memory.ToolResultMessage(id, content) }

// groupsEqual is a small utility used by grouping tests.
func groupsEqual(got, want []windowing.Group) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i].Kind != want[i].Kind || got[i].Start != want[i].Start || got[i].End != want[i].End {
			return false
		}
	}
	return true
}
