// Package toolgate provides a resilient client for invoking remote tools
// hosted by a tool gateway service.
//
// A tool is a named remote capability exposed by the gateway over JSON/HTTP.
// The client in this module protects callers from a slow, overloaded, or
// unreachable gateway: every invocation is gated by a circuit breaker, bounded
// by an explicit timeout, and returned as a value rather than an error, so a
// misbehaving gateway can never cascade a failure into the calling system.
//
// # Packages
//
//   - breaker: failure-detection state machine (closed / open / half-open)
//   - gateway: the HTTP client — health checks, catalog listing, tool
//     invocation, and order-preserving parallel fan-out
//   - tool: descriptor and invocation result value types
//   - schema: JSON Schema values for per-tool argument validation
//   - catalog: optional Redis-backed cache of the tool catalog
//   - config: toolgate.yaml loading
//   - types: health status vocabulary shared across packages
//
// # Getting Started
//
//	import "github.com/manavgup/toolgate/gateway"
//
//	client, err := gateway.New(gateway.Options{
//		GatewayURL: "http://localhost:8080",
//		APIKey:     os.Getenv("TOOLGATE_API_KEY"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	result := client.InvokeTool(ctx, gateway.InvokeRequest{
//		Tool:      "summarize",
//		Arguments: map[string]any{"text": doc},
//	})
//	if !result.Success {
//		log.Printf("invocation failed: %s", result.Error)
//	}
package toolgate
