package telemetry

import "context"

type scopeKey struct{}

// scope is what events pick up from the context: the query's turn and, while
// a tool runs, the call being answered.
type scope struct {
	turnID string
	callID string
}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

// WithTurnID returns a child context tagged with a query's turn ID. Any tool call
// ID set on ctx is dropped, since it belongs to the previous turn.
func WithTurnID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, scopeKey{}, scope{turnID: id})
}

// WithToolCall tags ctx with the id of the tool call being executed, keeping the turn ID.
func WithToolCall(ctx context.Context, callID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	s := scopeFrom(ctx)
	s.callID = callID
	return context.WithValue(ctx, scopeKey{}, s)
}

// TurnIDFromContext returns the turn ID from ctx; "", false when missing or empty.
func TurnIDFromContext(ctx context.Context) (string, bool) {
	id := scopeFrom(ctx).turnID
	return id, id != ""
}

func ToolCallFromContext(ctx context.Context) (string, bool) {
	id := scopeFrom(ctx).callID
	return id, id != ""
}
