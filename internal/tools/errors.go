package tools

import (
	"fmt"
	"time"
)

// ToolError carries a JSON-RPC error code so the server can answer with the
// right protocol-level error instead of a generic internal one.
type ToolError struct {
	Code    int
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

func NewToolNotFoundError(name string) *ToolError {
	return &ToolError{
		Code:    -32601,
		Message: fmt.Sprintf("Tool not found: %s", name),
	}
}

func NewToolExecutionError(name string, err error) *ToolError {
	return &ToolError{
		Code:    -32603,
		Message: fmt.Sprintf("Error executing tool %s: %v", name, err),
	}
}

func NewToolTimeoutError(name string, timeout time.Duration) *ToolError {
	return &ToolError{
		Code:    -32000,
		Message: fmt.Sprintf("Tool %s timed out after %s", name, timeout),
	}
}

func NewInvalidInputError(err error) *ToolError {
	return &ToolError{
		Code:    -32602,
		Message: fmt.Sprintf("Invalid tool input: %v", err),
	}
}
