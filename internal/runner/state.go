package runner

// State is the orchestrator's position in the loop.
type State int32

const (
	StateIdle State = iota
	StateAwaitingCompletion
	StateExecutingTool
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	case StateExecutingTool:
		return "executing_tool"
	default:
		return "unknown"
	}
}
