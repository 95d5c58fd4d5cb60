package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// DefaultSearchURL is the hosted tool endpoint that runs web-search-pro.
const DefaultSearchURL = "https://open.bigmodel.cn/api/paas/v4/tools"

const (
	searchTool         = "web-search-pro"
	maxSearchBody      = 1 << 20
	errorBodyPreview   = 500
	fallbackBodyLength = 1000
)

type WebSearchInput struct {
	Query string `json:"query" jsonschema_description:"What to search the internet for. Keep the user's full question."`
}

var WebSearchInputSchema = GenerateSchema[WebSearchInput]()

func WebSearchDefinition(ws *webSearch) ToolDefinition {
	return ToolDefinition{
		Name:        "web_search",
		Description: "Search the internet and return a summary of the results. Use for current events and anything date dependent.",
		InputSchema: WebSearchInputSchema,
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in WebSearchInput
			if err := decodeInput(input, &in); err != nil {
				return "", err
			}
			if strings.TrimSpace(in.Query) == "" {
				return "", fmt.Errorf("query is required")
			}
			return ws.Search(ctx, in.Query)
		},
	}
}

type webSearch struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

type searchResponse struct {
	Choices []struct {
		Message *struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Search posts query to the search endpoint and joins the returned messages with blank lines.
func (w *webSearch) Search(ctx context.Context, query string) (string, error) {
	endpoint := w.endpoint
	if endpoint == "" {
		endpoint = DefaultSearchURL
	}
	payload, err := json.Marshal(map[string]any{
		"tool":     searchTool,
		"messages": []map[string]string{{"role": "user", "content": query}},
		"stream":   false,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		preview, _ := clampRunes(string(body), errorBodyPreview)
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, preview)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		slog.DebugContext(ctx, "web search response is not the expected JSON, returning raw body", "err", err)
	}
	var parts []string
	for _, c := range parsed.Choices {
		if c.Message == nil {
			continue
		}
		if s := contentText(c.Message.Content); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		fallback, _ := clampRunes(string(body), fallbackBodyLength)
		return fallback, nil
	}
	return strings.Join(parts, "\n\n"), nil
}

// contentText accepts a plain string or any other JSON value, which is returned verbatim.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
