// internal/agent/types.go
package agent

import (
	"context"

	"agentd/internal/memory"
)

// Command is a named request with its parameters. Immutable once submitted.
type Command struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// Func is the single signature every agent conforms to. Validated at
// registration time; agents receive the command params and a memory handle
// scoped to the invocation.
type Func func(ctx context.Context, params map[string]any, mem memory.Handle) (map[string]any, error)

// Status tags a dispatch Result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// ErrorKind classifies dispatch failures.
type ErrorKind string

const (
	KindUnknownCommand ErrorKind = "unknown_command"
	KindQueueFull      ErrorKind = "queue_full"
	KindAgentError     ErrorKind = "agent_error"
	KindMemoryError    ErrorKind = "memory_error"
)

// Result is the normalized dispatch outcome. Timeout is distinct from Error
// because a timed-out agent may have partially succeeded; its memory writes
// may still land after the caller has moved on.
type Result struct {
	Status  Status         `json:"status"`
	Payload map[string]any `json:"payload,omitempty"`
	Kind    ErrorKind      `json:"error,omitempty"`
	Detail  string         `json:"detail,omitempty"`
}

// Success builds a success result with the agent's payload.
func Success(payload map[string]any) Result {
	return Result{Status: StatusSuccess, Payload: payload}
}

// Timeout builds a timeout result.
func Timeout() Result {
	return Result{Status: StatusTimeout}
}

// Failure builds an error result.
func Failure(kind ErrorKind, detail string) Result {
	return Result{Status: StatusError, Kind: kind, Detail: detail}
}
