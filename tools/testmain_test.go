package tools_test

import (
	"testing"

	"github.com/petasbytes/go-mcp-agent/tools"
)

// lookup returns the named definition from a registry built with cfg.
func lookup(t *testing.T, cfg tools.Config, name string) tools.ToolDefinition {
	t.Helper()
	defs, err := tools.Registry(cfg)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	for _, d := range defs {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("tool %q not registered", name)
	return tools.ToolDefinition{}
}
