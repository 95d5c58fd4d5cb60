package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition is one tool: its advertised contract and the function that runs it.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
	Function    func(ctx context.Context, input json.RawMessage) (string, error)
}

// Config carries what the network tools need. The zero value gives working
// arithmetic tools and network tools with default endpoints and limits.
type Config struct {
	SearchAPIKey string
	SearchURL    string
	// Proxy, when set, routes outbound tool traffic through this URL.
	Proxy             string
	HTTPTimeout       time.Duration
	FetchMaxBytes     int
	AllowPrivateHosts bool
	// HTTPClient overrides the client built from Proxy and HTTPTimeout.
	HTTPClient *http.Client
}

// Registry returns all tool definitions served by the tool server.
func Registry(cfg Config) ([]ToolDefinition, error) {
	client := cfg.HTTPClient
	if client == nil {
		var err error
		client, err = newHTTPClient(cfg.Proxy, cfg.HTTPTimeout)
		if err != nil {
			return nil, err
		}
	}
	defs := MathDefinitions()
	defs = append(defs,
		WebSearchDefinition(&webSearch{client: client, endpoint: cfg.SearchURL, apiKey: cfg.SearchAPIKey}),
		FetchURLDefinition(newFetcher(client, cfg.FetchMaxBytes, cfg.AllowPrivateHosts)),
	)
	return defs, nil
}

// Register adds defs to server. A handler error is reported to the client as an
// error result carrying the message, not as a protocol error.
func Register(server *mcp.Server, defs []ToolDefinition) {
	for _, def := range defs {
		fn := def.Function
		server.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := json.RawMessage(`{}`)
			if req.Params != nil && len(req.Params.Arguments) > 0 {
				args = req.Params.Arguments
			}
			out, err := fn(ctx, args)
			if err != nil {
				return &mcp.CallToolResult{
					IsError: true,
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: out}}}, nil
		})
	}
}
