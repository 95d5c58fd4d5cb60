package memory

import "strings"

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one tool invocation requested by the model.
// Arguments is the raw JSON text produced by the model and may be malformed.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry of the conversation log.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

func SystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }

func UserMessage(text string) Message { return Message{Role: RoleUser, Content: text} }

func AssistantMessage(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// ToolRequestMessage builds the assistant message that carries tool calls.
// Text is whatever the model said alongside the calls and is often empty.
func ToolRequestMessage(text string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: append([]ToolCall(nil), calls...)}
}

// ToolFailurePrefix marks a tool message whose content is a failure diagnostic rather than tool output.
const ToolFailurePrefix = "error: "

// ToolFailureMessage answers the call with the given id with a diagnostic.
func ToolFailureMessage(callID, diagnostic string) Message {
	return ToolResultMessage(callID, ToolFailurePrefix+diagnostic)
}

// ToolResultMessage answers the call with the given id.
func ToolResultMessage(callID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Content: content}
}

// IsToolRequest reports whether m is an assistant message carrying tool calls.
func (m Message) IsToolRequest() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// IsToolFailure reports whether m is a tool message carrying a failure diagnostic.
func (m Message) IsToolFailure() bool {
	return m.Role == RoleTool && strings.HasPrefix(m.Content, ToolFailurePrefix)
}

// clone returns a deep copy so callers can't alias the log's slices.
func (m Message) clone() Message {
	if m.ToolCalls != nil {
		m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	return m
}
