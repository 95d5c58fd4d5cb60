package runner

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when Query is called while another query on the same Runner is running.
var ErrBusy = errors.New("runner: a query is already in progress")

// ToolLoopExceededError ends a query whose model kept requesting tools past the configured limit.
type ToolLoopExceededError struct {
	Rounds int
}

func (e *ToolLoopExceededError) Error() string {
	return fmt.Sprintf("runner: model still requesting tools after %d rounds", e.Rounds)
}
