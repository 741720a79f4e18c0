// Package types defines small value types shared across toolgate packages.
package types

// Gateway health states as observed by the client. Degraded means the
// gateway answered its health probe but the circuit breaker is still gating
// calls to it.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus combines the outcome of a gateway health probe with the
// circuit breaker's view of the same endpoint. The two can disagree: the
// probe bypasses the breaker, so a recovering gateway reports degraded until
// a successful call closes the circuit again.
type HealthStatus struct {
	// Status is healthy, degraded, or unhealthy.
	Status string `json:"status"`

	// Message describes how the status was determined.
	Message string `json:"message,omitempty"`

	// BreakerState is the circuit breaker state at the time of the report
	// (closed, open, or half-open).
	BreakerState string `json:"breaker_state"`

	// FailureCount is the breaker's consecutive failure count.
	FailureCount int `json:"failure_count"`
}

// IsHealthy reports whether the gateway is reachable with a closed circuit.
func (h HealthStatus) IsHealthy() bool {
	return h.Status == StatusHealthy
}
