package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/petasbytes/go-mcp-agent/internal/toolsession"
	"github.com/petasbytes/go-mcp-agent/memory"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures an OpenAI-compatible chat completions endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int64
	MaxRetries int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIClient speaks the chat completions protocol, which most hosted and local model servers implement.
type OpenAIClient struct {
	client    openai.Client
	model     string
	maxTokens int64
}

func NewOpenAI(cfg OpenAIConfig) *OpenAIClient {
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
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{client: openai.NewClient(opts...), model: model, maxTokens: cfg.MaxTokens}
}

func (c *OpenAIClient) Complete(ctx context.Context, history []memory.Message, tools []toolsession.Descriptor) (Turn, error) {
	if err := checkHistory(history); err != nil {
		return nil, c.fail(err)
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: openAIMessages(history),
	}
	if len(tools) > 0 {
		params.Tools = openAITools(tools)
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(c.maxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.fail(err)
	}
	if len(resp.Choices) == 0 {
		return nil, c.fail(fmt.Errorf("%w: no choices", ErrMalformedResponse))
	}
	choice := resp.Choices[0]
	if choice.FinishReason != "tool_calls" && len(choice.Message.ToolCalls) == 0 {
		return &FinalAnswer{Text: choice.Message.Content}, nil
	}
	calls := make([]memory.ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		calls = append(calls, memory.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	if len(calls) == 0 {
		return nil, c.fail(fmt.Errorf("%w: finish_reason tool_calls without calls", ErrMalformedResponse))
	}
	if err := checkCalls(calls); err != nil {
		return nil, c.fail(err)
	}
	return &ToolRequest{Text: choice.Message.Content, Calls: calls}, nil
}

func (c *OpenAIClient) fail(err error) error {
	return &CompletionRequestError{Provider: "openai", Err: err}
}

func openAIMessages(history []memory.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case memory.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case memory.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case memory.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case memory.RoleAssistant:
			if !m.IsToolRequest() {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		}
	}
	return out
}

func openAITools(tools []toolsession.Descriptor) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		def := shared.FunctionDefinitionParam{
			Name:       t.Name,
			Parameters: shared.FunctionParameters(schemaObject(t.InputSchema)),
		}
		if t.Description != "" {
			def.Description = openai.String(t.Description)
		}
		out = append(out, openai.ChatCompletionFunctionTool(def))
	}
	return out
}
