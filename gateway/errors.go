package gateway

import (
	"fmt"
	"strings"
)

// Standard error codes used to classify invocation failures. The code appears
// in InvocationResult.Error text and as a metric attribute.
const (
	// CodeCircuitOpen indicates the circuit breaker rejected the call.
	CodeCircuitOpen = "CIRCUIT_OPEN"

	// CodeTimeout indicates the call exceeded its timeout.
	CodeTimeout = "TIMEOUT"

	// CodeNetworkError indicates a transport-level failure (DNS, connect, TLS).
	CodeNetworkError = "NETWORK_ERROR"

	// CodeHTTPError indicates the gateway answered with a non-2xx status.
	CodeHTTPError = "HTTP_ERROR"

	// CodeParseError indicates the gateway answered 2xx with a malformed body.
	CodeParseError = "PARSE_ERROR"

	// CodeInvalidInput indicates the request was rejected before any network call.
	CodeInvalidInput = "INVALID_INPUT"
)

// Error is a structured error describing a failed gateway operation.
// It is never returned by the client's public operations; it is composed
// internally and flattened into InvocationResult.Error text.
type Error struct {
	// Tool is the tool being invoked, if any.
	Tool string

	// Operation is the client operation that failed (e.g. "invoke", "list_tools").
	Operation string

	// Code is one of the Code* constants.
	Code string

	// Message is a human-readable error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func newError(tool, operation, code, message string) *Error {
	return &Error{
		Tool:      tool,
		Operation: operation,
		Code:      code,
		Message:   message,
	}
}

// WithCause attaches the underlying error and returns the same instance.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// Error formats the error as "tool [operation/CODE]: message: cause".
func (e *Error) Error() string {
	var parts []string

	subject := e.Tool
	if subject == "" {
		subject = "gateway"
	}
	parts = append(parts, fmt.Sprintf("%s [%s/%s]", subject, e.Operation, e.Code))

	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports equality by Tool, Operation, and Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Tool == t.Tool && e.Operation == t.Operation && e.Code == t.Code
}
