package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthStatus_IsHealthy(t *testing.T) {
	tests := []struct {
		name    string
		status  HealthStatus
		healthy bool
	}{
		{
			name:    "healthy",
			status:  HealthStatus{Status: StatusHealthy, BreakerState: "closed"},
			healthy: true,
		},
		{
			name:    "degraded while breaker open",
			status:  HealthStatus{Status: StatusDegraded, BreakerState: "open", FailureCount: 5},
			healthy: false,
		},
		{
			name:    "unhealthy",
			status:  HealthStatus{Status: StatusUnhealthy, Message: "gateway health check failed", BreakerState: "closed"},
			healthy: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.healthy, tt.status.IsHealthy())
		})
	}
}

func TestHealthStatus_JSONShape(t *testing.T) {
	s := HealthStatus{
		Status:       StatusDegraded,
		Message:      "gateway reachable but circuit breaker is open",
		BreakerState: "open",
		FailureCount: 3,
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "degraded", decoded["status"])
	assert.Equal(t, "open", decoded["breaker_state"])
	assert.Equal(t, float64(3), decoded["failure_count"])
}
