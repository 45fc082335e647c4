package aguikit

import (
	"errors"
	"fmt"
)

// ErrEmptyThreadID is returned when an operation needs a thread but none was given.
var ErrEmptyThreadID = errors.New("empty thread id")

// RunError is the terminal condition carried by a RUN_ERROR event.
// Messages and tool calls produced before the error are preserved.
type RunError struct {
	RunID   string `json:"runId,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error returns the error message, prefixed with the protocol code when present.
func (e *RunError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("run error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("run error: %s", e.Message)
}

// AsRunError returns the RunError in err's chain, if any.
func AsRunError(err error) (*RunError, bool) {
	var re *RunError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
