// Package config loads agent and tool server settings from TOML and the environment.
package config

// Config is the full configuration shared by cmd/agent and cmd/toolserver.
type Config struct {
	LLM    LLMConfig    `toml:"llm"`
	MCP    MCPConfig    `toml:"mcp"`
	Agent  AgentConfig  `toml:"agent"`
	Tools  ToolsConfig  `toml:"tools"`
	Server ServerConfig `toml:"server"`
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	Provider       string `toml:"provider"` // openai, anthropic
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaxTokens      int64  `toml:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
	SystemPrompt   string `toml:"system_prompt"`
}

// MCPConfig points the agent at its tool server.
type MCPConfig struct {
	// Server is a transport spec: stdio://cmd, sse://host/path, http+stream://host/path,
	// a bare http(s) URL, or a bare command line.
	Server             string `toml:"server"`
	CallTimeoutSeconds int    `toml:"call_timeout_seconds"`
}

type AgentConfig struct {
	MaxToolRounds int `toml:"max_tool_rounds"` // 0 = default (10), negative = unlimited
	HistoryBudget int `toml:"history_budget"`  // estimated tokens per request, 0 = unlimited
}

// ToolsConfig configures the tools served by cmd/toolserver.
type ToolsConfig struct {
	APIKey             string `toml:"api_key"`
	SearchURL          string `toml:"search_url"`
	Proxy              string `toml:"proxy"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
	FetchMaxBytes      int    `toml:"fetch_max_bytes"`
	AllowPrivateHosts  bool   `toml:"allow_private_hosts"`
}

type ServerConfig struct {
	Transport string `toml:"transport"` // stdio, http
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
}

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)
