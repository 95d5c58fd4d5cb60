package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// clearEnv blanks every override so Load sees only the file.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LLM_PROVIDER", "LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL", "MCP_URL",
		"API_KEY", "PROXY", "MCP_TRANSPORT", "MCP_HOST", "MCP_PORT"} {
		t.Setenv(k, "")
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 10, cfg.Agent.MaxToolRounds)
	assert.Equal(t, "0.0.0.0:5000", cfg.ListenAddr())
	assert.Equal(t, 32*1024, cfg.Tools.FetchMaxBytes)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().MCP, cfg.MCP)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "agent.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[llm]
provider = "anthropic"
model = "claude-test"

[agent]
max_tool_rounds = -1

[server]
transport = "http"
port = 8080
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, -1, cfg.Agent.MaxToolRounds)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, 8080, cfg.Server.Port)
	// untouched sections keep their defaults
	assert.Equal(t, DefaultSystemPrompt, cfg.LLM.SystemPrompt)
	assert.Equal(t, 60, cfg.MCP.CallTimeoutSeconds)
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[llm\nprovider="), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"LLM_PROVIDER":  "anthropic",
		"LLM_API_KEY":   "sk-abcdef123456",
		"LLM_BASE_URL":  "https://llm.example.com/v1",
		"LLM_MODEL":     "m1",
		"MCP_URL":       "http://localhost:5000/sse",
		"API_KEY":       "search-key",
		"PROXY":         "http://127.0.0.1:7890",
		"MCP_TRANSPORT": "http",
		"MCP_HOST":      "127.0.0.1",
		"MCP_PORT":      "6000",
	}))
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-abcdef123456", cfg.LLM.APIKey)
	assert.Equal(t, "https://llm.example.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "m1", cfg.LLM.Model)
	assert.Equal(t, "http://localhost:5000/sse", cfg.MCP.Server)
	assert.Equal(t, "search-key", cfg.Tools.APIKey)
	assert.Equal(t, "http://127.0.0.1:7890", cfg.Tools.Proxy)
	assert.Equal(t, "127.0.0.1:6000", cfg.ListenAddr())
}

func TestApplyEnv_EmptyValuesIgnored(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{"LLM_PROVIDER": ""})))
	assert.Equal(t, "openai", cfg.LLM.Provider)
}

func TestApplyEnv_BadPort(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.ApplyEnv(envMap(map[string]string{"MCP_PORT": "five"})))
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "mystery"
	cfg.MCP.Server = " "
	cfg.Server.Transport = "carrier-pigeon"
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{"llm.provider", "mcp.server", "server.transport", "server.port"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "sk-abcdef123456wxyz"
	cfg.Tools.APIKey = "short"

	r := cfg.Redacted()
	assert.Equal(t, "sk-a****wxyz", r.LLM.APIKey)
	assert.Equal(t, "****", r.Tools.APIKey)
	assert.Equal(t, "sk-abcdef123456wxyz", cfg.LLM.APIKey, "original must be untouched")
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "agent.toml")
	cfg := Default()
	cfg.LLM.Model = "saved-model"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved-model", loaded.LLM.Model)
}
