// Package provider adapts chat-completion APIs to the agent's message model.
//
// A CompletionClient sends the whole history plus the available tools and
// reports back either a final answer or a request to run tools.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/petasbytes/go-mcp-agent/internal/toolsession"
	"github.com/petasbytes/go-mcp-agent/memory"
)

// CompletionClient performs one completion round trip. Implementations are safe for concurrent use.
type CompletionClient interface {
	Complete(ctx context.Context, history []memory.Message, tools []toolsession.Descriptor) (Turn, error)
}

// Turn is either *FinalAnswer or *ToolRequest.
type Turn interface {
	turn()
}

// FinalAnswer ends the query with the model's text.
type FinalAnswer struct {
	Text string
}

// ToolRequest asks the caller to run Calls, in order, and send the results back.
type ToolRequest struct {
	// Text is any prose the model emitted alongside the calls.
	Text  string
	Calls []memory.ToolCall
}

func (*FinalAnswer) turn() {}
func (*ToolRequest) turn() {}

// Message is the assistant log entry for the request.
func (r *ToolRequest) Message() memory.Message {
	return memory.ToolRequestMessage(r.Text, r.Calls)
}

var (
	ErrInvalidHistory    = errors.New("invalid history")
	ErrMalformedResponse = errors.New("malformed completion response")
)

// CompletionRequestError wraps every failure of a completion round trip.
type CompletionRequestError struct {
	Provider string
	Err      error
}

func (e *CompletionRequestError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("completion: %v", e.Err)
	}
	return fmt.Sprintf("%s completion: %v", e.Provider, e.Err)
}

func (e *CompletionRequestError) Unwrap() error { return e.Err }

func checkHistory(history []memory.Message) error {
	if err := memory.Validate(history); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHistory, err)
	}
	return nil
}

// checkCalls rejects tool calls the conversation log could not record:
// a missing id or name, or an id used twice in one response.
func checkCalls(calls []memory.ToolCall) error {
	seen := make(map[string]struct{}, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			return fmt.Errorf("%w: tool call %d has no id", ErrMalformedResponse, i)
		}
		if c.Name == "" {
			return fmt.Errorf("%w: tool call %q has no name", ErrMalformedResponse, c.ID)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: duplicate tool call id %q", ErrMalformedResponse, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// schemaObject decodes a tool input schema, substituting an empty object schema for anything unusable.
func schemaObject(raw json.RawMessage) map[string]any {
	var m map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil || m == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	if _, ok := m["type"]; !ok {
		m["type"] = "object"
	}
	return m
}
