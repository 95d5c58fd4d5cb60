package metrics

import "github.com/petasbytes/go-mcp-agent/memory"

// ConversationStats summarises a message log without retaining any of its text.
type ConversationStats struct {
	Messages      int
	User          int
	Assistant     int
	ToolResults   int
	ToolCalls     int
	ToolFailures  int
	ArgumentBytes int // raw JSON arguments of every tool call
	Content       Features
}

// CountConversation walks msgs once and tallies roles, tool traffic and content size.
func CountConversation(msgs []memory.Message) ConversationStats {
	var st ConversationStats
	for _, m := range msgs {
		st.Messages++
		switch m.Role {
		case memory.RoleUser:
			st.User++
		case memory.RoleAssistant:
			st.Assistant++
			st.ToolCalls += len(m.ToolCalls)
		case memory.RoleTool:
			st.ToolResults++
			if m.IsToolFailure() {
				st.ToolFailures++
			}
		}
		st.Content = st.Content.Add(CountFeatures(m.Content))
		for _, tc := range m.ToolCalls {
			st.ArgumentBytes += len(tc.Arguments)
		}
	}
	return st
}
