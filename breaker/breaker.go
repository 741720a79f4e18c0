// Package breaker implements the circuit breaker that gates calls to the tool
// gateway. The breaker tracks consecutive failures against one downstream
// endpoint and stops admitting calls once the endpoint is known to be broken,
// while still admitting a periodic probe to detect recovery.
//
// State machine:
//
//	CLOSED --(failures reach threshold)--> OPEN
//	OPEN   --(recovery timeout elapses)--> HALF_OPEN
//	HALF_OPEN --(probe succeeds)--> CLOSED
//	HALF_OPEN --(probe fails)-----> OPEN
//
// All methods are safe for concurrent use. A single Breaker may be shared by
// several clients that talk to the same gateway so they share one failure
// history.
package breaker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State identifies the admission state of a Breaker.
type State string

const (
	// StateClosed admits all calls. This is the initial state.
	StateClosed State = "closed"

	// StateOpen rejects all calls until the recovery timeout elapses.
	StateOpen State = "open"

	// StateHalfOpen admits a single probe call to test recovery.
	StateHalfOpen State = "half-open"
)

// Default thresholds used when Options fields are zero.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 60 * time.Second
)

// OpenError is returned by CanExecute while the breaker is rejecting calls.
// Remaining is the time left until the breaker is willing to admit a probe;
// it is zero when a recovery probe is already in flight.
type OpenError struct {
	Remaining time.Duration
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	if e.Remaining <= 0 {
		return "circuit breaker is open: recovery probe in flight"
	}
	return fmt.Sprintf("circuit breaker is open: retry in %.1fs", e.Remaining.Seconds())
}

// Options configures a Breaker.
type Options struct {
	// FailureThreshold is the number of consecutive failures that trips the
	// breaker open. Defaults to DefaultFailureThreshold.
	FailureThreshold int

	// RecoveryTimeout is how long the breaker stays open before admitting a
	// recovery probe. Defaults to DefaultRecoveryTimeout.
	RecoveryTimeout time.Duration

	// Logger receives state transition logs. If nil, transitions are not logged.
	Logger *slog.Logger

	// OnStateChange, if set, is called after every state transition with the
	// old and new state. It is invoked while the breaker lock is held, so it
	// must not call back into the breaker.
	OnStateChange func(from, to State)
}

// Breaker is a circuit breaker for one downstream endpoint.
//
// The breaker is process-local and never persisted; a restart resets it to
// CLOSED with zero failures.
type Breaker struct {
	mu               sync.Mutex
	failureThreshold int
	recoveryTimeout  time.Duration
	failureCount     int
	lastFailure      time.Time
	state            State
	probing          bool

	logger        *slog.Logger
	onStateChange func(from, to State)

	// now is stubbed in tests to simulate elapsed time.
	now func() time.Time
}

// New creates a Breaker in the CLOSED state.
func New(opts Options) *Breaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.RecoveryTimeout <= 0 {
		opts.RecoveryTimeout = DefaultRecoveryTimeout
	}

	return &Breaker{
		failureThreshold: opts.FailureThreshold,
		recoveryTimeout:  opts.RecoveryTimeout,
		state:            StateClosed,
		logger:           opts.Logger,
		onStateChange:    opts.OnStateChange,
		now:              time.Now,
	}
}

// CanExecute reports whether a call may be attempted right now.
//
// It returns nil when the breaker is CLOSED or HALF_OPEN. When the breaker is
// OPEN and the recovery timeout has elapsed, it transitions to HALF_OPEN,
// admits the caller as the single recovery probe, and returns nil. Otherwise
// it returns an *OpenError carrying the time remaining until a probe will be
// admitted.
//
// Only one probe is admitted per HALF_OPEN window: concurrent callers are
// rejected until the probe's outcome is recorded via RecordSuccess or
// RecordFailure.
func (b *Breaker) CanExecute() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateHalfOpen:
		if b.probing {
			return &OpenError{}
		}
		b.probing = true
		return nil

	case StateOpen:
		elapsed := b.now().Sub(b.lastFailure)
		if elapsed < b.recoveryTimeout {
			return &OpenError{Remaining: b.recoveryTimeout - elapsed}
		}
		b.transition(StateHalfOpen)
		b.probing = true
		return nil
	}

	return nil
}

// RecordSuccess resets the failure count and closes the breaker.
// It is a no-op when the breaker is already CLOSED with zero failures.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	b.probing = false
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

// RecordFailure counts one failure and stamps the failure time. Reaching the
// failure threshold trips the breaker open. A failure recorded during
// HALF_OPEN reopens the breaker immediately and restarts the recovery clock.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailure = b.now()
	b.probing = false

	if b.state == StateHalfOpen || b.failureCount >= b.failureThreshold {
		if b.state != StateOpen {
			b.transition(StateOpen)
		}
	}
}

// State returns the current admission state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the current consecutive failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// transition moves the breaker to a new state, logging the change.
// The caller must hold b.mu.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to

	if b.logger != nil {
		switch to {
		case StateOpen:
			b.logger.Warn("circuit breaker opened",
				"from", string(from),
				"failures", b.failureCount,
				"recovery_timeout", b.recoveryTimeout,
			)
		case StateHalfOpen:
			b.logger.Info("circuit breaker half-open, admitting recovery probe")
		case StateClosed:
			b.logger.Info("circuit breaker closed", "from", string(from))
		}
	}

	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}
