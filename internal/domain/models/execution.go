package models

// ErrorKind tags an execution failure for observability. Failures are
// data, not control flow: a failed invocation never aborts a routing cycle.
type ErrorKind string

const (
	ErrKindNone             ErrorKind = ""
	ErrKindExecutionFailure ErrorKind = "EXECUTION_FAILURE"
	ErrKindTimeout          ErrorKind = "TIMEOUT"
)

// ExecutionResult is the normalized outcome of a venue invocation.
type ExecutionResult struct {
	Success      bool      `json:"success"`
	Profit       float64   `json:"profit"`
	ExecutionRef string    `json:"execution_ref"`
	ResourceCost int       `json:"resource_cost"`
	Error        ErrorKind `json:"error,omitempty"`
}
