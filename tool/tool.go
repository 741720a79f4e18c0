// Package tool defines the value types exchanged with the tool gateway:
// catalog descriptors and invocation results.
package tool

import "github.com/manavgup/toolgate/schema"

// Descriptor describes one tool in the gateway's catalog.
type Descriptor struct {
	// Name is the unique identifier used to invoke the tool.
	Name string `json:"name"`

	// Description is a human-readable description of what the tool does.
	Description string `json:"description"`

	// InputSchema optionally describes the argument object the tool accepts.
	// The catalog is dynamic, so callers must tolerate its absence.
	InputSchema *schema.JSON `json:"input_schema,omitempty"`
}

// InvocationResult is the outcome of a single tool invocation.
//
// Results are immutable values created fresh per call. Success distinguishes
// the two shapes: when true, Result holds the decoded JSON returned by the
// tool; when false, Error holds diagnostic text and Result is nil. Callers
// should treat Error as display text only, never as a control-flow signal.
type InvocationResult struct {
	// ToolName is the tool that was invoked.
	ToolName string `json:"tool_name"`

	// Success reports whether the invocation produced a result.
	Success bool `json:"success"`

	// Result is the decoded JSON value returned by the tool.
	// Present only when Success is true.
	Result any `json:"result,omitempty"`

	// Error is diagnostic text describing why the invocation failed.
	// Present only when Success is false.
	Error string `json:"error,omitempty"`

	// DurationMS is the wall-clock time of the invocation in milliseconds.
	// Zero when the call was rejected before reaching the network.
	DurationMS float64 `json:"duration_ms"`

	// InvocationID correlates this result with client logs and the
	// X-Invocation-ID request header.
	InvocationID string `json:"invocation_id,omitempty"`
}
