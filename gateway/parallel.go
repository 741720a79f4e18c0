package gateway

import (
	"context"
	"sync"

	"github.com/manavgup/toolgate/tool"
)

// InvokeToolsParallel invokes independent tools concurrently and returns their
// results ordered by input position, regardless of completion order.
//
// At most MaxConcurrent invocations are in flight at once. All invocations
// share this client's circuit breaker: a burst of failures can trip the
// breaker mid-batch, after which later-starting calls observe an open-circuit
// result without touching the network. Calls already in flight when the
// breaker trips are not cancelled; they run to completion and their outcome
// is still recorded.
func (c *Client) InvokeToolsParallel(ctx context.Context, reqs []InvokeRequest) []tool.InvocationResult {
	results := make([]tool.InvocationResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	sem := make(chan struct{}, c.maxConcurrent)
	var wg sync.WaitGroup

	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = c.InvokeTool(ctx, reqs[i])
		}(i)
	}

	wg.Wait()

	return results
}
