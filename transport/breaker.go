package transport

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Circuit breaker states.
const (
	StateClosed   State = iota // Normal operation, requests pass through
	StateOpen                  // Circuit is open, requests fail immediately
	StateHalfOpen              // Testing if the upstream has recovered
)

// State represents the current state of the circuit breaker.
type State int

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyRequests is returned when the half-open probe budget
	// is exhausted.
	ErrTooManyRequests = errors.New("too many requests")
)

// CircuitBreaker implements the circuit breaker pattern over outbound
// requests, shielding the upstream API while it is failing.
type CircuitBreaker struct {
	mu sync.RWMutex

	// Configuration
	maxRequests      uint32        // Max probe requests allowed in half-open state
	interval         time.Duration // Time window for counting failures in closed state
	timeout          time.Duration // Time to wait in open state before trying half-open
	failureThreshold float64       // Failure rate that trips the circuit (0.0-1.0)
	successThreshold uint32        // Consecutive successes needed to close from half-open
	minRequests      uint32        // Minimum samples before the circuit may trip

	// State tracking
	state          State
	generation     uint64
	stateChangedAt time.Time

	// Counters
	counts           Counts
	halfOpenRequests uint32

	// Callbacks
	onStateChange func(from, to State)
	isFailure     func(resp *http.Response, err error) bool
}

// Counts holds the statistics for the circuit breaker.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// BreakerOption configures a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithMaxRequests sets the number of probe requests allowed in
// half-open state.
func WithMaxRequests(n uint32) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.maxRequests = n
	}
}

// WithInterval sets the time window for counting failures.
func WithInterval(d time.Duration) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.interval = d
	}
}

// WithOpenTimeout sets the time to wait in open state before probing.
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.timeout = d
	}
}

// WithFailureThreshold sets the failure rate that trips the circuit.
func WithFailureThreshold(threshold float64) BreakerOption {
	return func(cb *CircuitBreaker) {
		if threshold > 0 && threshold <= 1.0 {
			cb.failureThreshold = threshold
		}
	}
}

// WithSuccessThreshold sets the consecutive successes needed to close.
func WithSuccessThreshold(n uint32) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.successThreshold = n
	}
}

// WithMinRequests sets the minimum number of samples in the window
// before the circuit may trip.
func WithMinRequests(n uint32) BreakerOption {
	return func(cb *CircuitBreaker) {
		if n > 0 {
			cb.minRequests = n
		}
	}
}

// WithOnStateChange sets a callback for state changes.
func WithOnStateChange(fn func(from, to State)) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.onStateChange = fn
	}
}

// WithIsFailure sets a custom function deciding whether an attempt
// counts as a failure.
func WithIsFailure(fn func(resp *http.Response, err error) bool) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.isFailure = fn
	}
}

// NewCircuitBreaker creates a new circuit breaker with default
// settings.
func NewCircuitBreaker(opts ...BreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		maxRequests:      1,
		interval:         60 * time.Second,
		timeout:          60 * time.Second,
		failureThreshold: 0.6, // 60% failure rate
		successThreshold: 1,
		minRequests:      10,
		state:            StateClosed,
		stateChangedAt:   time.Now(),
		isFailure:        defaultIsFailure,
	}

	for _, opt := range opts {
		opt(cb)
	}

	return cb
}

// defaultIsFailure counts transport errors and server-side statuses as
// failures. Client errors (4xx) do not trip the circuit; they indicate
// a bad request, not a failing upstream.
func defaultIsFailure(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode >= http.StatusInternalServerError
}

// Breaker returns a circuit breaker middleware with its own breaker
// instance.
func Breaker(opts ...BreakerOption) Middleware {
	return NewCircuitBreaker(opts...).Middleware()
}

// Middleware returns the middleware for this breaker instance, for
// callers that also want to inspect its state.
func (cb *CircuitBreaker) Middleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			generation, err := cb.beforeRequest()
			if err != nil {
				return nil, fmt.Errorf("transport: %w", err)
			}

			resp, rerr := next.RoundTrip(req)
			cb.afterRequest(generation, resp, rerr)

			return resp, rerr
		})
	}
}

// beforeRequest checks whether the request is allowed in the current
// state.
func (cb *CircuitBreaker) beforeRequest() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	state, generation := cb.currentState(now)

	if state == StateOpen {
		return generation, ErrCircuitOpen
	}

	if state == StateHalfOpen {
		if cb.halfOpenRequests >= cb.maxRequests {
			return generation, ErrTooManyRequests
		}
		cb.halfOpenRequests++
	}

	cb.counts.Requests++
	return generation, nil
}

// afterRequest records the result of a request.
func (cb *CircuitBreaker) afterRequest(generation uint64, resp *http.Response, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	state, currentGeneration := cb.currentState(now)

	// Ignore if the state changed while the request was in flight.
	if generation != currentGeneration {
		return
	}

	if cb.isFailure(resp, err) {
		cb.counts.TotalFailures++
		cb.counts.ConsecutiveFailures++
		cb.counts.ConsecutiveSuccesses = 0

		if state == StateHalfOpen {
			cb.setState(StateOpen, now)
		} else if state == StateClosed && cb.shouldOpen() {
			cb.setState(StateOpen, now)
		}
	} else {
		cb.counts.TotalSuccesses++
		cb.counts.ConsecutiveSuccesses++
		cb.counts.ConsecutiveFailures = 0

		if state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.successThreshold {
			cb.setState(StateClosed, now)
		}
	}
}

// currentState returns the current state and generation; callers hold
// the lock.
func (cb *CircuitBreaker) currentState(now time.Time) (State, uint64) {
	switch cb.state {
	case StateClosed:
		if cb.interval > 0 && now.Sub(cb.stateChangedAt) > cb.interval {
			cb.resetCounts()
			cb.stateChangedAt = now
		}
	case StateOpen:
		if now.Sub(cb.stateChangedAt) >= cb.timeout {
			cb.setState(StateHalfOpen, now)
		}
	}

	return cb.state, cb.generation
}

// shouldOpen decides whether the failure rate warrants tripping.
func (cb *CircuitBreaker) shouldOpen() bool {
	if cb.counts.Requests < cb.minRequests {
		return false
	}

	failureRate := float64(cb.counts.TotalFailures) / float64(cb.counts.Requests)
	return failureRate >= cb.failureThreshold
}

// setState changes the circuit breaker state; callers hold the lock.
func (cb *CircuitBreaker) setState(newState State, now time.Time) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState
	cb.stateChangedAt = now
	cb.generation++

	cb.resetCounts()

	if newState == StateHalfOpen {
		cb.halfOpenRequests = 0
	}

	if cb.onStateChange != nil {
		cb.onStateChange(oldState, newState)
	}
}

// resetCounts resets all counters; callers hold the lock.
func (cb *CircuitBreaker) resetCounts() {
	cb.counts = Counts{}
}

// CurrentState returns the circuit breaker state, applying a pending
// open-to-half-open transition if its timeout has elapsed.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state, _ := cb.currentState(time.Now())
	return state
}

// GetCounts returns the current circuit breaker counts.
func (cb *CircuitBreaker) GetCounts() Counts {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return cb.counts
}

// BreakerStats holds detailed statistics about the circuit breaker.
type BreakerStats struct {
	State          State
	Counts         Counts
	StateChangedAt time.Time
	Generation     uint64
}

// GetStats returns current statistics.
func (cb *CircuitBreaker) GetStats() BreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return BreakerStats{
		State:          cb.state,
		Counts:         cb.counts,
		StateChangedAt: cb.stateChangedAt,
		Generation:     cb.generation,
	}
}

// Reset manually resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(StateClosed, time.Now())
}
