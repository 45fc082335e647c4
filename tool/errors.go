package tool

import (
	"errors"
	"fmt"
)

// ErrEmptyName is returned when registering a tool or renderer without a name.
var ErrEmptyName = errors.New("tool: empty name")

// ErrResponseTimeout is returned by a ResponseBroker handler when no response
// arrived in time.
var ErrResponseTimeout = errors.New("tool: response timeout")

// ErrToolNotFound is returned when a tool call references an unregistered tool.
type ErrToolNotFound struct {
	Name    string
	AgentID string
}

// Error returns a formatted error message including the tool name.
func (e *ErrToolNotFound) Error() string {
	if e.AgentID != "" {
		return fmt.Sprintf("tool: not found: %s (agent %s)", e.Name, e.AgentID)
	}
	return fmt.Sprintf("tool: not found: %s", e.Name)
}

// ErrToolExecution wraps errors from tool handler execution.
type ErrToolExecution struct {
	Name string
	Err  error
}

// Error returns a formatted error message including the tool name and cause.
func (e *ErrToolExecution) Error() string {
	return fmt.Sprintf("tool: %s execution failed: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ErrToolExecution) Unwrap() error {
	return e.Err
}

// ErrInvalidSchema is returned when a tool's parameter schema does not compile.
type ErrInvalidSchema struct {
	Name string
	Err  error
}

// Error returns a formatted error message including the tool name and cause.
func (e *ErrInvalidSchema) Error() string {
	return fmt.Sprintf("tool: %s has an invalid parameter schema: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ErrInvalidSchema) Unwrap() error {
	return e.Err
}

// ErrInvalidArguments is returned when call arguments fail schema validation
// or cannot be decoded into a typed handler's argument type.
type ErrInvalidArguments struct {
	Name string
	Err  error
}

// Error returns a formatted error message including the tool name and cause.
func (e *ErrInvalidArguments) Error() string {
	return fmt.Sprintf("tool: %s invalid arguments: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ErrInvalidArguments) Unwrap() error {
	return e.Err
}

// ErrNoPendingResponse is returned by ResponseBroker.Respond when no handler
// is waiting for the tool call.
type ErrNoPendingResponse struct {
	ToolCallID string
}

// Error returns a formatted error message including the tool call id.
func (e *ErrNoPendingResponse) Error() string {
	return fmt.Sprintf("tool: no pending response for tool call %q", e.ToolCallID)
}
