package telemetry

import (
	"context"
	"time"

	"github.com/petasbytes/go-mcp-agent/internal/metrics"
)

// Event names written to events.jsonl.
const (
	EventQueryStarted   = "query_started"
	EventCompletion     = "completion"
	EventToolExec       = "tool_exec"
	EventQueryCompleted = "query_completed"
)

// EmitQueryStarted records the shape of the user's query, never its text.
func EmitQueryStarted(ctx context.Context, query string, tools int) {
	if !ObserveEnabled() {
		return
	}
	turnID, _ := TurnIDFromContext(ctx)
	f := metrics.CountFeatures(query)
	Emit(EventQueryStarted, map[string]any{
		"turn_id":          turnID,
		"features_version": "1",
		"tools_available":  tools,
		"user": map[string]any{
			"bytes": f.Bytes,
			"runes": f.Runes,
			"words": f.Words,
			"lines": f.Lines,
		},
	})
}

// Completion describes one round trip to the completion endpoint.
type Completion struct {
	Round     int
	Messages  int
	Duration  time.Duration
	Outcome   string // final, tool_request or error
	ToolCalls int
	// Windowed counts history messages left out of the request by the budget.
	Windowed int
}

func EmitCompletion(ctx context.Context, c Completion) {
	turnID, _ := TurnIDFromContext(ctx)
	Emit(EventCompletion, map[string]any{
		"turn_id":     turnID,
		"round":       c.Round,
		"messages":    c.Messages,
		"duration_ms": c.Duration.Milliseconds(),
		"outcome":     c.Outcome,
		"tool_calls":  c.ToolCalls,
		"windowed":    c.Windowed,
	})
}

// ToolExec describes one tool call. Error is a short class such as "tool error", never the raw message.
type ToolExec struct {
	Name       string
	Duration   time.Duration
	InputSize  int
	OutputSize int
	Error      string
}

func EmitToolExec(ctx context.Context, e ToolExec) {
	turnID, _ := TurnIDFromContext(ctx)
	callID, _ := ToolCallFromContext(ctx)
	fields := map[string]any{
		"tool_name":   e.Name,
		"call_id":     callID,
		"duration_ms": e.Duration.Milliseconds(),
		"input_size":  e.InputSize,
		"output_size": e.OutputSize,
		"turn_id":     turnID,
		"error":       nil,
	}
	if e.Error != "" {
		fields["error"] = e.Error
	}
	Emit(EventToolExec, fields)
}

// EmitQueryCompleted closes a query with its outcome and the resulting conversation stats.
func EmitQueryCompleted(ctx context.Context, outcome string, rounds int, elapsed time.Duration, st metrics.ConversationStats) {
	if !ObserveEnabled() {
		return
	}
	turnID, _ := TurnIDFromContext(ctx)
	Emit(EventQueryCompleted, map[string]any{
		"turn_id":       turnID,
		"outcome":       outcome,
		"tool_rounds":   rounds,
		"duration_ms":   elapsed.Milliseconds(),
		"messages":      st.Messages,
		"tool_calls":    st.ToolCalls,
		"tool_failures": st.ToolFailures,
		"content_bytes": st.Content.Bytes,
	})
}
