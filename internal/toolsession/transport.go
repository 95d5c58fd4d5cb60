package toolsession

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// transportBuilder is swapped out in tests to hand back in-memory transports.
var transportBuilder = BuildTransport

// BuildTransport turns a server spec into an MCP client transport.
//
// Accepted forms:
//
//	stdio://uv run main.py     subprocess over stdio
//	sse://host/path            SSE endpoint, https assumed when no scheme is given
//	http+sse://host/path       SSE endpoint
//	http+stream://host/path    streamable HTTP endpoint (also +http, +streamable)
//	http://host/path           SSE endpoint
//	./server --flag            anything else runs as a stdio subprocess
func BuildTransport(_ context.Context, spec string) (mcp.Transport, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("toolsession: empty server spec")
	}
	lower := strings.ToLower(spec)

	if rest, ok := cutPrefixFold(spec, lower, "stdio://"); ok {
		return commandTransport(rest)
	}
	if rest, ok := cutPrefixFold(spec, lower, "sse://"); ok {
		endpoint, err := normalizeEndpoint(rest, true)
		if err != nil {
			return nil, fmt.Errorf("toolsession: sse endpoint: %w", err)
		}
		return &mcp.SSEClientTransport{Endpoint: endpoint}, nil
	}

	u, err := url.Parse(spec)
	if err == nil && u.Scheme != "" {
		base, hint, hinted := strings.Cut(strings.ToLower(u.Scheme), "+")
		if base == "http" || base == "https" {
			u.Scheme = base
			endpoint, err := normalizeEndpoint(u.String(), false)
			if err != nil {
				return nil, fmt.Errorf("toolsession: endpoint: %w", err)
			}
			if !hinted {
				return &mcp.SSEClientTransport{Endpoint: endpoint}, nil
			}
			switch hint {
			case "sse":
				return &mcp.SSEClientTransport{Endpoint: endpoint}, nil
			case "stream", "streamable", "http":
				return &mcp.StreamableClientTransport{Endpoint: endpoint}, nil
			default:
				return nil, fmt.Errorf("toolsession: unsupported transport hint %q", hint)
			}
		}
	}

	return commandTransport(spec)
}

func commandTransport(cmdline string) (mcp.Transport, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, fmt.Errorf("toolsession: empty stdio command")
	}
	// The subprocess outlives the dial context; Session.Close stops it.
	cmd := exec.Command(fields[0], fields[1:]...) // #nosec G204 -- command comes from local config
	return &mcp.CommandTransport{Command: cmd}, nil
}

func normalizeEndpoint(raw string, guessScheme bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	if guessScheme && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	return u.String(), nil
}

func cutPrefixFold(s, lower, prefix string) (string, bool) {
	if !strings.HasPrefix(lower, prefix) {
		return "", false
	}
	return strings.TrimSpace(s[len(prefix):]), true
}
