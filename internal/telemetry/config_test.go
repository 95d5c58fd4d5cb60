package telemetry_test

import (
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"testing"

	"github.com/petasbytes/go-mcp-agent/internal/telemetry"
)

// Run TestStartupConfigChild in a clean env so startup-only telemetry config is deterministic.
func runWithEnv(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(os.Args[0], append([]string{"-test.run=TestStartupConfigChild"}, args...)...)
	// Only PATH is inherited so AGT_* variables from the parent can't leak in.
	base := []string{"GO_WANT_HELPER_PROCESS=1"}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "PATH=") {
			base = append(base, kv)
			break
		}
	}
	for k, v := range env {
		base = append(base, k+"="+v)
	}
	cmd.Env = base
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestStartupConfig_Matrix(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string // encode expected values in output: "observe=.. dir=.."
	}{
		{"baseline_off", map[string]string{}, "observe=false dir=.agent"},
		{"observe_on", map[string]string{"AGT_OBSERVE_JSON": "1"}, "observe=true dir=.agent"},
		{"observe_explicit_off", map[string]string{"AGT_OBSERVE_JSON": "0"}, "observe=false dir=.agent"},
		{"custom_dir", map[string]string{"AGT_ARTIFACTS_DIR": "/tmp/agt"}, "observe=false dir=/tmp/agt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runWithEnv(t, tt.env)
			if err != nil {
				t.Fatalf("subprocess error: %v\n%s", err, got)
			}
			if !containsLine(got, tt.want) {
				t.Fatalf("want line:\n%s\ngot output:\n%s", tt.want, got)
			}
		})
	}
}

// TestStartupConfigChild runs only in the subprocess and prints the startup configuration for the parent to assert.
func TestStartupConfigChild(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Printf("observe=%v dir=%s\n", telemetry.ObserveEnabled(), telemetry.ArtifactsDir())
}

// containsLine reports whether output has a line exactly equal to want.
func containsLine(output, want string) bool {
	return slices.Contains(strings.Split(output, "\n"), want)
}
