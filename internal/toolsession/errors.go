package toolsession

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionUnavailable means there is no live connection to the tool server.
	ErrSessionUnavailable = errors.New("tool session unavailable")
	// ErrMalformedArguments means the model's arguments are not a JSON object.
	ErrMalformedArguments = errors.New("malformed tool arguments")
	ErrUnknownTool        = errors.New("unknown tool")
	// ErrToolFailed means the server ran the tool and it reported an error result.
	ErrToolFailed = errors.New("tool reported failure")
)

// ToolInvocationError describes a failed call of a single tool. The session stays usable.
type ToolInvocationError struct {
	Name  string
	Cause error
}

func (e *ToolInvocationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("tool %s failed", e.Name)
	}
	return fmt.Sprintf("tool %s: %v", e.Name, e.Cause)
}

func (e *ToolInvocationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func unavailable(op string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", op, ErrSessionUnavailable)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrSessionUnavailable, cause)
}
