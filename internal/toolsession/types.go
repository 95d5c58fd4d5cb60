package toolsession

import (
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Descriptor advertises one remote tool.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Block is one content item returned by a tool call.
type Block struct {
	Type string
	Text string
}

// Result is the ordered content of a successful call.
type Result struct {
	Blocks []Block
}

// Text concatenates the text blocks of r, ignoring every other block type.
func (r Result) Text() string {
	var b strings.Builder
	for _, blk := range r.Blocks {
		if blk.Type == "text" {
			b.WriteString(blk.Text)
		}
	}
	return b.String()
}

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

func toDescriptor(t *mcp.Tool) Descriptor {
	if t == nil {
		return Descriptor{}
	}
	d := Descriptor{Name: t.Name, Description: t.Description, InputSchema: emptyObjectSchema}
	if t.InputSchema != nil {
		if raw, err := json.Marshal(t.InputSchema); err == nil && string(raw) != "null" {
			d.InputSchema = raw
		}
	}
	return d
}

func toResult(res *mcp.CallToolResult) Result {
	if res == nil {
		return Result{}
	}
	out := Result{Blocks: make([]Block, 0, len(res.Content))}
	for _, c := range res.Content {
		switch v := c.(type) {
		case *mcp.TextContent:
			out.Blocks = append(out.Blocks, Block{Type: "text", Text: v.Text})
		case *mcp.ImageContent:
			out.Blocks = append(out.Blocks, Block{Type: "image"})
		case *mcp.AudioContent:
			out.Blocks = append(out.Blocks, Block{Type: "audio"})
		case *mcp.ResourceLink:
			out.Blocks = append(out.Blocks, Block{Type: "resource_link"})
		case *mcp.EmbeddedResource:
			out.Blocks = append(out.Blocks, Block{Type: "resource"})
		default:
			out.Blocks = append(out.Blocks, Block{Type: "unknown"})
		}
	}
	return out
}
