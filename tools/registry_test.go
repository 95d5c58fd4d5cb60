package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/go-mcp-agent/tools"
)

func TestRegistry_ToolNames(t *testing.T) {
	defs, err := tools.Registry(tools.Config{})
	require.NoError(t, err)

	var names []string
	for _, d := range defs {
		names = append(names, d.Name)
		assert.NotEmpty(t, d.Description, d.Name)
		assert.Equal(t, "object", d.InputSchema["type"], d.Name)
	}
	assert.ElementsMatch(t, []string{"add", "subtract", "multiply", "divide", "web_search", "fetch_url"}, names)
}

func TestRegistry_BadProxy(t *testing.T) {
	_, err := tools.Registry(tools.Config{Proxy: "::not a url"})
	require.Error(t, err)
}

// connect serves defs over an in-memory transport and returns a client session.
func connect(t *testing.T, defs []tools.ToolDefinition) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := mcp.NewServer(&mcp.Implementation{Name: "tools-test", Version: "test"}, nil)
	tools.Register(server, defs)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	client := mcp.NewClient(&mcp.Implementation{Name: "tools-test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Close()
	})
	return cs
}

func TestRegister_ServesTools(t *testing.T) {
	cs := connect(t, tools.MathDefinitions())
	ctx := context.Background()

	listed, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, listed.Tools, 4)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "divide", Arguments: map[string]any{"a": 1, "b": 0}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "+Inf", text.Text)
}

func TestRegister_HandlerErrorIsToolError(t *testing.T) {
	cs := connect(t, []tools.ToolDefinition{{
		Name:        "fail",
		Description: "Always fails",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Function: func(context.Context, json.RawMessage) (string, error) {
			return "", errors.New("upstream unavailable")
		},
	}})

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "fail", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.True(t, res.IsError)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "upstream unavailable", text.Text)
}
