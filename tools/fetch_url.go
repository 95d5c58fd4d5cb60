package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/petasbytes/go-mcp-agent/internal/safety"
)

const (
	defaultFetchMaxBytes = 32 * 1024
	maxDownloadBytes     = 2 << 20
	maxRedirects         = 5
	truncationNote       = "\n\n[content truncated]"
)

type FetchURLInput struct {
	URL    string `json:"url" jsonschema_description:"Absolute http or https URL to fetch."`
	Format string `json:"format,omitempty" jsonschema:"enum=text,enum=markdown" jsonschema_description:"How to render HTML pages: text (default) or markdown."`
}

var FetchURLInputSchema = GenerateSchema[FetchURLInput]()

func FetchURLDefinition(f *fetcher) ToolDefinition {
	return ToolDefinition{
		Name:        "fetch_url",
		Description: "Fetch a public web page and return its readable content. Scripts and styles are stripped; output is capped.",
		InputSchema: FetchURLInputSchema,
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in FetchURLInput
			if err := decodeInput(input, &in); err != nil {
				return "", err
			}
			return f.Fetch(ctx, in)
		},
	}
}

type fetcher struct {
	client   *http.Client
	policy   safety.URLPolicy
	maxBytes int
}

func newFetcher(client *http.Client, maxBytes int, allowPrivate bool) *fetcher {
	if maxBytes <= 0 {
		maxBytes = defaultFetchMaxBytes
	}
	f := &fetcher{policy: safety.URLPolicy{AllowPrivate: allowPrivate}, maxBytes: maxBytes}
	// Every redirect hop goes through the same policy as the first request.
	c := *client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return safety.ToolError{Code: safety.CodeFetchFailed, Message: "too many redirects"}
		}
		_, err := f.policy.Validate(req.URL.String())
		return err
	}
	// Without a proxy the connection goes straight to the resolved host, so the
	// policy is enforced again on the address actually dialled.
	if tr, ok := c.Transport.(*http.Transport); ok && tr.Proxy == nil && !allowPrivate {
		tr = tr.Clone()
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second, Control: f.policy.Control}
		tr.DialContext = dialer.DialContext
		c.Transport = tr
	}
	f.client = &c
	return f
}

func (f *fetcher) Fetch(ctx context.Context, in FetchURLInput) (string, error) {
	format := strings.ToLower(strings.TrimSpace(in.Format))
	switch format {
	case "":
		format = "text"
	case "text", "markdown":
	default:
		return "", fmt.Errorf("format must be text or markdown, got %q", in.Format)
	}
	u, err := f.policy.Validate(in.URL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", safety.ToolError{Code: safety.CodeInvalidURL, Message: err.Error()}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		// Policy rejections from a redirect or a dial surface wrapped in a *url.Error.
		var te safety.ToolError
		if errors.As(err, &te) {
			return "", te
		}
		return "", safety.ToolError{Code: safety.CodeFetchFailed, Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", safety.ToolError{Code: safety.CodeFetchFailed, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return "", safety.ToolError{Code: safety.CodeFetchFailed, Message: err.Error()}
	}
	if len(body) > maxDownloadBytes {
		return "", safety.ToolError{Code: safety.CodeTooLarge, Message: fmt.Sprintf("response exceeds %d bytes", maxDownloadBytes)}
	}

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	var out string
	switch {
	case strings.Contains(ct, "html") || (ct == "" && looksLikeHTML(body)):
		out, err = renderHTML(body, format)
		if err != nil {
			return "", safety.ToolError{Code: safety.CodeFetchFailed, Message: err.Error()}
		}
	case ct == "" || strings.HasPrefix(ct, "text/") || strings.Contains(ct, "json") || strings.Contains(ct, "xml"):
		out = string(body)
	default:
		return "", safety.ToolError{Code: safety.CodeFetchFailed, Message: "unsupported content type " + ct}
	}

	if clamped, cut := clampRunes(out, f.maxBytes); cut {
		out = clamped + truncationNote
	}
	return out, nil
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func renderHTML(body []byte, format string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, iframe, svg, head").Remove()

	var content string
	if format == "markdown" {
		raw, err := doc.Html()
		if err != nil {
			return "", err
		}
		content, err = md.NewConverter("", true, nil).ConvertString(raw)
		if err != nil {
			return "", err
		}
		content = strings.TrimSpace(content)
	} else {
		var b strings.Builder
		for _, n := range doc.Nodes {
			collectText(n, &b)
		}
		content = normalizeWS(b.String())
	}
	if title != "" {
		return "Title: " + title + "\n\n" + content, nil
	}
	return content, nil
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func normalizeWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
