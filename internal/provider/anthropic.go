package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/petasbytes/go-mcp-agent/internal/toolsession"
	"github.com/petasbytes/go-mcp-agent/memory"
)

const (
	DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

	defaultAnthropicMaxTokens = 1024
)

// AnthropicConfig configures the Messages API client. An empty APIKey falls back
// to ANTHROPIC_API_KEY, which the SDK reads itself.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int64
	MaxRetries int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// AnthropicClient maps the chat-completions message model onto the Messages API:
// tool calls become tool_use blocks and each run of tool messages becomes one
// user message of tool_result blocks.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewAnthropic(cfg AnthropicConfig) *AnthropicClient {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...), model: model, maxTokens: maxTokens}
}

func (c *AnthropicClient) Complete(ctx context.Context, history []memory.Message, tools []toolsession.Descriptor) (Turn, error) {
	if err := checkHistory(history); err != nil {
		return nil, c.fail(err)
	}
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  anthropicMessages(history[1:]),
	}
	if sys := history[0].Content; sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}
	if len(tools) > 0 {
		params.Tools = anthropicTools(tools)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, c.fail(err)
	}

	var (
		text  []string
		calls []memory.ToolCall
	)
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			if v.Text != "" {
				text = append(text, v.Text)
			}
		case anthropic.ToolUseBlock:
			calls = append(calls, memory.ToolCall{ID: v.ID, Name: v.Name, Arguments: v.JSON.Input.Raw()})
		}
	}
	joined := strings.Join(text, "\n")
	if len(calls) > 0 {
		if err := checkCalls(calls); err != nil {
			return nil, c.fail(err)
		}
		return &ToolRequest{Text: joined, Calls: calls}, nil
	}
	if msg.StopReason == anthropic.StopReasonToolUse {
		return nil, c.fail(fmt.Errorf("%w: stop_reason tool_use without tool_use blocks", ErrMalformedResponse))
	}
	return &FinalAnswer{Text: joined}, nil
}

func (c *AnthropicClient) fail(err error) error {
	return &CompletionRequestError{Provider: "anthropic", Err: err}
}

const omittedPlaceholder = "(earlier messages omitted)"

// anthropicMessages converts everything after the system message. Adjacent
// messages that map to the same role are merged into one.
func anthropicMessages(history []memory.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(history))
	push := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, m := range history {
		switch m.Role {
		case memory.RoleUser:
			push(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(m.Content))
		case memory.RoleTool:
			push(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsToolFailure()))
		case memory.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    tc.ID,
					Name:  tc.Name,
					Input: toolInput(tc.Arguments),
				}})
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock("(no content)"))
			}
			push(anthropic.MessageParamRoleAssistant, blocks...)
		}
	}
	// A windowed history can start mid-exchange; the API wants a user turn first.
	if len(out) > 0 && out[0].Role == anthropic.MessageParamRoleAssistant {
		out = append([]anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(omittedPlaceholder))}, out...)
	}
	return out
}

// toolInput passes valid JSON through untouched; the API rejects anything else.
func toolInput(args string) any {
	if json.Valid([]byte(args)) {
		return json.RawMessage(args)
	}
	return map[string]any{}
}

func anthropicTools(tools []toolsession.Descriptor) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := schemaObject(t.InputSchema)
		input := anthropic.ToolInputSchemaParam{Properties: schema["properties"]}
		if req, ok := schema["required"].([]any); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					input.Required = append(input.Required, s)
				}
			}
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: input,
		}})
	}
	return out
}
