package runner_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/petasbytes/go-mcp-agent/internal/provider"
	"github.com/petasbytes/go-mcp-agent/internal/toolsession"
	"github.com/petasbytes/go-mcp-agent/memory"
)

type step struct {
	turn provider.Turn
	err  error
}

// scriptedClient replays steps in order and records every history it was sent.
type scriptedClient struct {
	mu     sync.Mutex
	steps  []step
	repeat *step // returned once steps run out
	seen   [][]memory.Message
	tools  [][]toolsession.Descriptor
	hook   func(ctx context.Context)
}

func (c *scriptedClient) Complete(ctx context.Context, history []memory.Message, tools []toolsession.Descriptor) (provider.Turn, error) {
	if c.hook != nil {
		c.hook(ctx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, history)
	c.tools = append(c.tools, tools)
	if len(c.steps) == 0 {
		if c.repeat != nil {
			return c.repeat.turn, c.repeat.err
		}
		return nil, &provider.CompletionRequestError{Provider: "script", Err: errors.New("script exhausted")}
	}
	s := c.steps[0]
	c.steps = c.steps[1:]
	return s.turn, s.err
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

type toolFunc func(ctx context.Context, args json.RawMessage) (toolsession.Result, error)

// fakeSession dispatches to in-process handlers keyed by tool name.
type fakeSession struct {
	mu        sync.Mutex
	handlers  map[string]toolFunc
	listErr   error
	listCalls int
	called    []string
}

func (s *fakeSession) ListTools(ctx context.Context) ([]toolsession.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]toolsession.Descriptor, 0, len(s.handlers))
	for name := range s.handlers {
		out = append(out, toolsession.Descriptor{Name: name, InputSchema: json.RawMessage(`{"type":"object"}`)})
	}
	return out, nil
}

func (s *fakeSession) CallTool(ctx context.Context, name string, args json.RawMessage) (toolsession.Result, error) {
	s.mu.Lock()
	s.called = append(s.called, name)
	h, ok := s.handlers[name]
	s.mu.Unlock()
	if !ok {
		return toolsession.Result{}, &toolsession.ToolInvocationError{Name: name, Cause: toolsession.ErrUnknownTool}
	}
	return h(ctx, args)
}

func textResult(s string) toolsession.Result {
	return toolsession.Result{Blocks: []toolsession.Block{{Type: "text", Text: s}}}
}

func mathSession() *fakeSession {
	binary := func(op func(a, b float64) float64) toolFunc {
		return func(ctx context.Context, args json.RawMessage) (toolsession.Result, error) {
			var in struct{ A, B float64 }
			if err := json.Unmarshal(args, &in); err != nil {
				return toolsession.Result{}, &toolsession.ToolInvocationError{Name: "math", Cause: toolsession.ErrMalformedArguments}
			}
			return textResult(strconv.FormatFloat(op(in.A, in.B), 'f', -1, 64)), nil
		}
	}
	return &fakeSession{handlers: map[string]toolFunc{
		"add":      binary(func(a, b float64) float64 { return a + b }),
		"multiply": binary(func(a, b float64) float64 { return a * b }),
	}}
}

func toolRequest(calls ...memory.ToolCall) step {
	return step{turn: &provider.ToolRequest{Calls: calls}}
}

func final(text string) step {
	return step{turn: &provider.FinalAnswer{Text: text}}
}

func roles(msgs []memory.Message) []memory.Role {
	out := make([]memory.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

func equalRoles(got []memory.Role, want ...memory.Role) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// readEventLines returns the non-empty lines of events.jsonl under dir.
func readEventLines(t *testing.T, dir string) []string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("open events: %v", err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}
