// Package gateway implements the resilient HTTP client for the tool gateway.
//
// The client translates every foreseeable network or endpoint failure on the
// invocation path into a typed result rather than an error: HealthCheck,
// ListTools, and InvokeTool are total functions. The only mutable shared
// state is the circuit breaker, which gates risky calls and is consulted
// before any network I/O on the catalog and invocation paths.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/manavgup/toolgate"
	"github.com/manavgup/toolgate/breaker"
	"github.com/manavgup/toolgate/tool"
	"github.com/manavgup/toolgate/types"
)

// Default option values applied by New.
const (
	DefaultTimeout            = 30 * time.Second
	DefaultHealthCheckTimeout = 5 * time.Second
	DefaultMaxConcurrent      = 4
)

// maxErrorBodyBytes bounds how much of an error response body is copied into
// diagnostic text.
const maxErrorBodyBytes = 512

// CatalogCache caches the tool catalog between ListTools calls.
// Implementations must be safe for concurrent use.
type CatalogCache interface {
	// Get returns the cached catalog. ok is false on a miss or expired entry.
	Get(ctx context.Context) (descriptors []tool.Descriptor, ok bool, err error)

	// Put stores the catalog.
	Put(ctx context.Context, descriptors []tool.Descriptor) error
}

// InvokeRequest identifies one tool invocation.
type InvokeRequest struct {
	// Tool is the name of the tool to invoke.
	Tool string

	// Arguments is the open JSON argument object passed to the tool.
	Arguments map[string]any

	// Timeout overrides the client's default call timeout when positive.
	Timeout time.Duration
}

// Options configures a Client.
type Options struct {
	// GatewayURL is the base URL of the tool gateway. Required.
	GatewayURL string

	// APIKey is an optional bearer credential sent on invocation requests.
	APIKey string

	// Timeout is the default per-call timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// HealthCheckTimeout bounds health probes. Defaults to DefaultHealthCheckTimeout.
	HealthCheckTimeout time.Duration

	// FailureThreshold and RecoveryTimeout configure the client's own circuit
	// breaker. Ignored when Breaker is set.
	FailureThreshold int
	RecoveryTimeout  time.Duration

	// MaxConcurrent caps in-flight requests during parallel fan-out.
	// Defaults to DefaultMaxConcurrent.
	MaxConcurrent int

	// Breaker, if set, is shared by reference: several clients talking to the
	// same gateway can pool their failure history. The caller manages its
	// lifetime. If nil, the client owns a breaker built from the thresholds
	// above.
	Breaker *breaker.Breaker

	// Catalog, if set, caches ListTools results. With a cache configured, a
	// fresh cached catalog is served without a network call, including while
	// the circuit is open.
	Catalog CatalogCache

	// Logger receives structured logs. If nil, a default slog JSON logger is used.
	Logger *slog.Logger

	// MeterProvider enables invocation metrics when set.
	MeterProvider metric.MeterProvider

	// TracerProvider enables invocation spans when set.
	TracerProvider trace.TracerProvider
}

// Client invokes named tools hosted by one gateway endpoint.
//
// A Client is safe for concurrent use. The underlying HTTP transport is
// created lazily on first call and released by Close; a closed client
// re-establishes a fresh transport on the next call.
type Client struct {
	baseURL            string
	apiKey             string
	timeout            time.Duration
	healthCheckTimeout time.Duration
	maxConcurrent      int

	breaker *breaker.Breaker
	catalog CatalogCache
	logger  *slog.Logger
	metrics *clientMetrics
	tracer  trace.Tracer

	mu         sync.Mutex
	httpClient *http.Client
}

// New creates a Client for the given gateway.
//
// The gateway URL is normalized (trailing slash stripped) and must parse as
// an absolute http or https URL.
func New(opts Options) (*Client, error) {
	if opts.GatewayURL == "" {
		return nil, fmt.Errorf("gateway URL is required: %w", toolgate.ErrInvalidConfig)
	}

	u, err := url.Parse(opts.GatewayURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gateway URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("gateway URL scheme must be http or https, got %q: %w", u.Scheme, toolgate.ErrInvalidConfig)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HealthCheckTimeout <= 0 {
		opts.HealthCheckTimeout = DefaultHealthCheckTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	c := &Client{
		baseURL:            strings.TrimRight(opts.GatewayURL, "/"),
		apiKey:             opts.APIKey,
		timeout:            opts.Timeout,
		healthCheckTimeout: opts.HealthCheckTimeout,
		maxConcurrent:      opts.MaxConcurrent,
		catalog:            opts.Catalog,
		logger:             opts.Logger.With("gateway_url", strings.TrimRight(opts.GatewayURL, "/")),
	}

	if opts.MeterProvider != nil {
		metrics, err := newClientMetrics(opts.MeterProvider.Meter("github.com/manavgup/toolgate/gateway"))
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
		c.metrics = metrics
	}

	if opts.TracerProvider != nil {
		c.tracer = opts.TracerProvider.Tracer("github.com/manavgup/toolgate/gateway")
	} else {
		c.tracer = noop.NewTracerProvider().Tracer("github.com/manavgup/toolgate/gateway")
	}

	if opts.Breaker != nil {
		c.breaker = opts.Breaker
	} else {
		c.breaker = breaker.New(breaker.Options{
			FailureThreshold: opts.FailureThreshold,
			RecoveryTimeout:  opts.RecoveryTimeout,
			Logger:           c.logger,
			OnStateChange: func(from, to breaker.State) {
				c.metrics.recordBreakerTransition(string(from), string(to))
			},
		})
	}

	return c, nil
}

// Breaker returns the circuit breaker gating this client, whether owned or
// injected. Useful for status reporting and for sharing with other clients.
func (c *Client) Breaker() *breaker.Breaker {
	return c.breaker
}

// HealthCheck probes the gateway's health endpoint.
//
// It returns true only on HTTP 200; any timeout, transport error, or other
// status returns false. The probe bypasses the circuit breaker so that
// external recovery monitoring keeps working while the circuit is open.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.transport().Do(req)
	if err != nil {
		c.logger.Debug("health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// ListTools fetches the gateway's tool catalog.
//
// It never returns an error. An empty slice means the catalog is unknown, not
// that the gateway hosts zero tools: the circuit may be open (no network call
// is made) or the fetch may have failed (logged). When a catalog cache is
// configured, a fresh cached copy is served without a network call.
func (c *Client) ListTools(ctx context.Context) []tool.Descriptor {
	if c.catalog != nil {
		cached, ok, err := c.catalog.Get(ctx)
		if err != nil {
			c.logger.Debug("catalog cache read failed", "error", err)
		} else if ok {
			return cached
		}
	}

	if err := c.breaker.CanExecute(); err != nil {
		c.logger.Warn("tool listing skipped, circuit breaker open", "error", err)
		return []tool.Descriptor{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tools", nil)
	if err != nil {
		c.breaker.RecordFailure()
		c.logger.Error("failed to build tool listing request", "error", err)
		return []tool.Descriptor{}
	}
	c.setAuth(req)

	resp, err := c.transport().Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		c.logger.Warn("tool listing failed", "error", err)
		return []tool.Descriptor{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.breaker.RecordFailure()
		c.logger.Warn("tool listing failed", "status", resp.StatusCode)
		return []tool.Descriptor{}
	}

	var payload struct {
		Tools []tool.Descriptor `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.breaker.RecordFailure()
		c.logger.Warn("failed to decode tool catalog", "error", err)
		return []tool.Descriptor{}
	}

	c.breaker.RecordSuccess()

	if c.catalog != nil {
		if err := c.catalog.Put(ctx, payload.Tools); err != nil {
			c.logger.Debug("catalog cache write failed", "error", err)
		}
	}

	c.logger.Debug("tool catalog fetched", "tools", len(payload.Tools))

	return payload.Tools
}

// InvokeTool invokes one named tool with a JSON argument object.
//
// This operation never returns an error: an open circuit, a timeout, a non-2xx
// status, a transport failure, or a malformed response body all produce an
// InvocationResult with Success false and diagnostic text in Error. A 2xx
// response with a valid JSON body records a breaker success and returns the
// decoded value; every other outcome that reached the network records a
// breaker failure.
func (c *Client) InvokeTool(ctx context.Context, req InvokeRequest) tool.InvocationResult {
	invocationID := uuid.New().String()
	logger := c.logger.With("tool", req.Tool, "invocation_id", invocationID)

	ctx, span := c.tracer.Start(ctx, "gateway.invoke_tool", trace.WithAttributes(
		attribute.String("tool", req.Tool),
		attribute.String("invocation_id", invocationID),
	))
	defer span.End()

	fail := func(durationMS float64, err *Error) tool.InvocationResult {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Code)
		c.metrics.recordInvocation(ctx, req.Tool, durationMS, err.Code)
		return tool.InvocationResult{
			ToolName:     req.Tool,
			Success:      false,
			Error:        err.Error(),
			DurationMS:   durationMS,
			InvocationID: invocationID,
		}
	}

	if req.Tool == "" {
		return fail(0, newError(req.Tool, "invoke", CodeInvalidInput, "tool name is required"))
	}

	body := map[string]any{"arguments": req.Arguments}
	if req.Arguments == nil {
		body["arguments"] = map[string]any{}
	}
	if req.Timeout > 0 {
		body["timeout"] = req.Timeout.Seconds()
	}

	// Encode before consulting the breaker: a caller-side encoding bug says
	// nothing about gateway health and must not consume a recovery probe.
	payload, err := json.Marshal(body)
	if err != nil {
		return fail(0, newError(req.Tool, "invoke", CodeInvalidInput, "failed to encode arguments").WithCause(err))
	}

	if err := c.breaker.CanExecute(); err != nil {
		logger.Warn("invocation rejected, circuit breaker open", "error", err)
		return fail(0, newError(req.Tool, "invoke", CodeCircuitOpen, "call rejected").WithCause(err))
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	elapsedMS := func() float64 { return float64(time.Since(start).Microseconds()) / 1000.0 }

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/tools/"+url.PathEscape(req.Tool)+"/invoke", bytes.NewReader(payload))
	if err != nil {
		c.breaker.RecordFailure()
		return fail(elapsedMS(), newError(req.Tool, "invoke", CodeInvalidInput, "failed to build request").WithCause(err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Invocation-ID", invocationID)
	c.setAuth(httpReq)

	resp, err := c.transport().Do(httpReq)
	if err != nil {
		c.breaker.RecordFailure()
		if isTimeout(err) {
			logger.Warn("invocation timed out", "timeout", timeout)
			return fail(elapsedMS(), newError(req.Tool, "invoke", CodeTimeout,
				fmt.Sprintf("Timeout after %v", timeout)).WithCause(err))
		}
		logger.Warn("invocation transport error", "error", err)
		return fail(elapsedMS(), newError(req.Tool, "invoke", CodeNetworkError, "request failed").WithCause(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		if isTimeout(err) {
			return fail(elapsedMS(), newError(req.Tool, "invoke", CodeTimeout,
				fmt.Sprintf("Timeout after %v reading response", timeout)).WithCause(err))
		}
		return fail(elapsedMS(), newError(req.Tool, "invoke", CodeNetworkError, "failed to read response").WithCause(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.breaker.RecordFailure()
		logger.Warn("invocation failed", "status", resp.StatusCode)
		return fail(elapsedMS(), newError(req.Tool, "invoke", CodeHTTPError,
			fmt.Sprintf("gateway returned status %d: %s", resp.StatusCode, boundedBody(respBody))))
	}

	var result any
	if err := json.Unmarshal(respBody, &result); err != nil {
		// A 2xx with an undecodable body breaks the structured-data contract,
		// so it counts as a failure.
		c.breaker.RecordFailure()
		logger.Warn("invocation returned malformed JSON", "error", err)
		return fail(elapsedMS(), newError(req.Tool, "invoke", CodeParseError, "malformed JSON in response").WithCause(err))
	}

	c.breaker.RecordSuccess()

	durationMS := elapsedMS()
	c.metrics.recordInvocation(ctx, req.Tool, durationMS, "")
	logger.Debug("invocation completed", "duration_ms", durationMS)

	return tool.InvocationResult{
		ToolName:     req.Tool,
		Success:      true,
		Result:       result,
		DurationMS:   durationMS,
		InvocationID: invocationID,
	}
}

// Status reports the observed health of the gateway combined with the
// circuit breaker's view of it.
func (c *Client) Status(ctx context.Context) types.HealthStatus {
	status := types.HealthStatus{
		BreakerState: string(c.breaker.State()),
		FailureCount: c.breaker.FailureCount(),
	}

	switch {
	case !c.HealthCheck(ctx):
		status.Status = types.StatusUnhealthy
		status.Message = "gateway health check failed"
	case status.BreakerState != string(breaker.StateClosed):
		status.Status = types.StatusDegraded
		status.Message = "gateway reachable but circuit breaker is " + status.BreakerState
	default:
		status.Status = types.StatusHealthy
		status.Message = "gateway reachable"
	}

	return status
}

// Close releases the transport handle. It is idempotent; a subsequent call on
// the client lazily re-establishes a fresh handle.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
		c.httpClient = nil
	}

	return nil
}

// transport returns the shared HTTP client, creating it on first use.
// Per-call deadlines come from request contexts, not a client-wide timeout.
func (c *Client) transport() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}

	return c.httpClient
}

// setAuth attaches the bearer credential when configured.
func (c *Client) setAuth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// isTimeout reports whether err is a deadline or I/O timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// boundedBody trims a response body for inclusion in diagnostic text.
// Truncation backs up to a rune boundary so the result stays valid UTF-8.
func boundedBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= maxErrorBodyBytes {
		return text
	}

	cut := maxErrorBodyBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	return text[:cut] + "..."
}
