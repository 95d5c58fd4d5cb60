package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultSystemPrompt steers the model towards searching before answering.
const DefaultSystemPrompt = "You are a helpful assistant. You can search the internet with the web_search tool. " +
	"Call web_search before answering, and keep the user's full question when searching. " +
	"For questions about dates or current events, search directly instead of assuming the current time."

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       string(ProviderOpenAI),
			TimeoutSeconds: 60,
			MaxRetries:     2,
			SystemPrompt:   DefaultSystemPrompt,
		},
		MCP: MCPConfig{
			Server:             "stdio://toolserver",
			CallTimeoutSeconds: 60,
		},
		Agent: AgentConfig{
			MaxToolRounds: 10,
		},
		Tools: ToolsConfig{
			HTTPTimeoutSeconds: 30,
			FetchMaxBytes:      32 * 1024,
		},
		Server: ServerConfig{
			Transport: string(TransportStdio),
			Host:      "0.0.0.0",
			Port:      5000,
		},
	}
}

// Load reads configPath over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up with lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("LLM_PROVIDER", &c.LLM.Provider)
	str("LLM_API_KEY", &c.LLM.APIKey)
	str("LLM_BASE_URL", &c.LLM.BaseURL)
	str("LLM_MODEL", &c.LLM.Model)
	str("MCP_URL", &c.MCP.Server)
	str("API_KEY", &c.Tools.APIKey)
	str("PROXY", &c.Tools.Proxy)
	str("MCP_TRANSPORT", &c.Server.Transport)
	str("MCP_HOST", &c.Server.Host)

	if v, ok := lookup("MCP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: MCP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch Provider(strings.ToLower(c.LLM.Provider)) {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	if c.LLM.TimeoutSeconds < 0 {
		errs = append(errs, errors.New("llm.timeout_seconds: must not be negative"))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, errors.New("llm.max_retries: must not be negative"))
	}
	if strings.TrimSpace(c.MCP.Server) == "" {
		errs = append(errs, errors.New("mcp.server: required"))
	}
	if c.MCP.CallTimeoutSeconds < 0 {
		errs = append(errs, errors.New("mcp.call_timeout_seconds: must not be negative"))
	}
	if c.Agent.HistoryBudget < 0 {
		errs = append(errs, errors.New("agent.history_budget: must not be negative"))
	}
	if c.Tools.FetchMaxBytes < 0 {
		errs = append(errs, errors.New("tools.fetch_max_bytes: must not be negative"))
	}
	switch Transport(strings.ToLower(c.Server.Transport)) {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Errorf("server.transport: must be stdio or http, got %q", c.Server.Transport))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: out of range: %d", c.Server.Port))
	}
	return errors.Join(errs...)
}

// Redacted returns a copy safe to log: keys keep their first and last four characters.
func (c *Config) Redacted() Config {
	out := *c
	out.LLM.APIKey = mask(c.LLM.APIKey)
	out.Tools.APIKey = mask(c.Tools.APIKey)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// Save writes the configuration as TOML, creating the parent directory.
func (c *Config) Save(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}
	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(c)
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.MCP.CallTimeoutSeconds) * time.Second
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Tools.HTTPTimeoutSeconds) * time.Second
}

// ListenAddr is the host:port the http transport binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
