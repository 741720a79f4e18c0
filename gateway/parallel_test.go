package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeToolsParallel_PreservesInputOrder(t *testing.T) {
	// t1 is the slowest; completion order is t3, t2, t1, but results must come
	// back in input order.
	delays := map[string]time.Duration{
		"t1": 150 * time.Millisecond,
		"t2": 50 * time.Millisecond,
		"t3": 0,
	}

	c, _ := newTestClient(t, Options{}, func(w http.ResponseWriter, r *http.Request) {
		name := strings.Split(r.URL.Path, "/")[2]
		time.Sleep(delays[name])
		_ = json.NewEncoder(w).Encode(map[string]any{"tool": name})
	})

	results := c.InvokeToolsParallel(context.Background(), []InvokeRequest{
		{Tool: "t1"}, {Tool: "t2"}, {Tool: "t3"},
	})

	require.Len(t, results, 3)
	assert.Equal(t, "t1", results[0].ToolName)
	assert.Equal(t, "t2", results[1].ToolName)
	assert.Equal(t, "t3", results[2].ToolName)
	for i, r := range results {
		assert.True(t, r.Success, "result %d: %s", i, r.Error)
	}
}

func TestInvokeToolsParallel_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64

	c, _ := newTestClient(t, Options{MaxConcurrent: 2}, func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = w.Write([]byte(`{}`))
	})

	reqs := make([]InvokeRequest, 8)
	for i := range reqs {
		reqs[i] = InvokeRequest{Tool: fmt.Sprintf("t%d", i)}
	}

	results := c.InvokeToolsParallel(context.Background(), reqs)

	require.Len(t, results, 8)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestInvokeToolsParallel_BreakerTripsMidBatch(t *testing.T) {
	// Threshold 1 with serialized execution: the first call fails and trips
	// the breaker; every later call must observe an open-circuit result
	// without reaching the network.
	c, hits := newTestClient(t, Options{FailureThreshold: 1, MaxConcurrent: 1}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	results := c.InvokeToolsParallel(context.Background(), []InvokeRequest{
		{Tool: "t1"}, {Tool: "t2"}, {Tool: "t3"},
	})

	require.Len(t, results, 3)
	assert.Equal(t, int64(1), hits.Load())

	var httpFailures, openCircuit int
	for _, r := range results {
		require.False(t, r.Success)
		switch {
		case strings.Contains(r.Error, "status 500"):
			httpFailures++
		case strings.Contains(r.Error, "circuit breaker is open"):
			openCircuit++
		}
	}
	assert.Equal(t, 1, httpFailures)
	assert.Equal(t, 2, openCircuit)
}

func TestInvokeToolsParallel_EmptyBatch(t *testing.T) {
	c, hits := newTestClient(t, Options{}, func(w http.ResponseWriter, r *http.Request) {})

	results := c.InvokeToolsParallel(context.Background(), nil)

	assert.Empty(t, results)
	assert.Equal(t, int64(0), hits.Load())
}
