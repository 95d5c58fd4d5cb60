package memory

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnmatchedToolResult is returned for a tool message that does not answer
	// the next outstanding call.
	ErrUnmatchedToolResult = errors.New("memory: tool result does not match the next pending call")
	// ErrPendingToolCalls is returned when a user or assistant message is appended
	// while calls of the previous tool request are still unanswered.
	ErrPendingToolCalls = errors.New("memory: previous tool calls are still unresolved")
	ErrInvalidMessage   = errors.New("memory: invalid message")
	ErrMissingSystem    = errors.New("memory: history must start with a system message")
)

// Conversation is the append-only message log of one session.
// It is safe for concurrent use; readers always get copies.
type Conversation struct {
	mu      sync.RWMutex
	msgs    []Message
	pending []string
}

// NewConversation starts a log with the given system prompt as its first message.
func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{msgs: []Message{SystemMessage(systemPrompt)}}
}

// Append validates msgs as one batch and appends them. On error nothing is appended.
func (c *Conversation) Append(msgs ...Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := c.pending
	for i, m := range msgs {
		next, err := advance(pending, m)
		if err != nil {
			return fmt.Errorf("append message %d (%s): %w", i, m.Role, err)
		}
		pending = next
	}
	for _, m := range msgs {
		c.msgs = append(c.msgs, m.clone())
	}
	c.pending = append([]string(nil), pending...)
	return nil
}

// Messages returns a copy of the full log.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.msgs))
	for i, m := range c.msgs {
		out[i] = m.clone()
	}
	return out
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.msgs)
}

// Pending returns the ids of calls from the latest tool request that have no result yet, in request order.
func (c *Conversation) Pending() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.pending...)
}

// Validate checks that msgs is a well-formed history: a leading system message
// followed by messages that respect tool-call pairing. Trailing unanswered calls are allowed.
func Validate(msgs []Message) error {
	if len(msgs) == 0 || msgs[0].Role != RoleSystem {
		return ErrMissingSystem
	}
	var pending []string
	for i, m := range msgs[1:] {
		next, err := advance(pending, m)
		if err != nil {
			return fmt.Errorf("message %d (%s): %w", i+1, m.Role, err)
		}
		pending = next
	}
	return nil
}

// advance applies m to the outstanding call ids and returns the new set.
func advance(pending []string, m Message) ([]string, error) {
	switch m.Role {
	case RoleTool:
		if len(pending) == 0 || m.ToolCallID != pending[0] {
			return nil, fmt.Errorf("%w: got %q", ErrUnmatchedToolResult, m.ToolCallID)
		}
		return pending[1:], nil
	case RoleUser:
		if len(pending) > 0 {
			return nil, ErrPendingToolCalls
		}
		if len(m.ToolCalls) > 0 || m.ToolCallID != "" {
			return nil, fmt.Errorf("%w: user message carries tool fields", ErrInvalidMessage)
		}
		return nil, nil
	case RoleAssistant:
		if len(pending) > 0 {
			return nil, ErrPendingToolCalls
		}
		if m.ToolCallID != "" {
			return nil, fmt.Errorf("%w: assistant message carries tool_call_id", ErrInvalidMessage)
		}
		ids := make([]string, 0, len(m.ToolCalls))
		seen := make(map[string]struct{}, len(m.ToolCalls))
		for _, tc := range m.ToolCalls {
			if tc.ID == "" {
				return nil, fmt.Errorf("%w: tool call without id", ErrInvalidMessage)
			}
			if _, dup := seen[tc.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate tool call id %q", ErrInvalidMessage, tc.ID)
			}
			seen[tc.ID] = struct{}{}
			ids = append(ids, tc.ID)
		}
		return ids, nil
	case RoleSystem:
		return nil, fmt.Errorf("%w: system message only allowed first", ErrInvalidMessage)
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, m.Role)
	}
}
