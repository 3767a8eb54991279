package errors

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// uncounted marks an error the breaker passes through without recording.
type uncounted struct{ err error }

func (u *uncounted) Error() string { return u.err.Error() }
func (u *uncounted) Unwrap() error { return u.err }

// Uncounted wraps err so Execute returns it without counting a failure or
// a success. Use it for failures that say nothing about the upstream, such
// as the caller's own cancellation or a rejected request.
func Uncounted(err error) error {
	if err == nil {
		return nil
	}
	return &uncounted{err: err}
}

// State represents the circuit breaker state.
type State int

const (
	// StateClosed is the normal state where requests are allowed.
	StateClosed State = iota
	// StateOpen is when the circuit is tripped and requests are blocked.
	StateOpen
	// StateHalfOpen lets a trial request through after the reset timeout.
	StateHalfOpen
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker fails fast against an upstream that keeps failing.
// The charts client and the remote index client each own one.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time
	onChange     func(name string, from, to State)

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

// CircuitBreakerOption configures a CircuitBreaker.
type CircuitBreakerOption func(*CircuitBreaker)

// WithMaxFailures sets the number of consecutive failures before opening.
func WithMaxFailures(n int) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		if n > 0 {
			cb.maxFailures = n
		}
	}
}

// WithResetTimeout sets the time to wait before a trial request.
func WithResetTimeout(d time.Duration) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		if d > 0 {
			cb.resetTimeout = d
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

// WithStateChange registers a callback invoked on every state transition.
// The callback runs outside the breaker's lock.
func WithStateChange(fn func(name string, from, to State)) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.onChange = fn
	}
}

// NewCircuitBreaker creates a new circuit breaker with the given name.
// Default: 5 failures, 30 second reset timeout.
func NewCircuitBreaker(name string, opts ...CircuitBreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         name,
		maxFailures:  5,
		resetTimeout: 30 * time.Second,
		now:          time.Now,
		state:        StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Name returns the circuit breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// currentState must be called with the lock held.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && cb.now().Sub(cb.lastFailure) > cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Allow reports whether a request would currently be let through.
func (cb *CircuitBreaker) Allow() bool {
	return cb.State() != StateOpen
}

// Execute runs fn through the circuit breaker.
// Returns ErrCircuitOpen without calling fn if the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	_, err := Execute(cb, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Execute runs fn through cb and returns its result.
// A failed half-open trial reopens the circuit immediately. Errors wrapped
// with Uncounted leave the breaker untouched and are returned unwrapped.
func Execute[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T

	cb.mu.Lock()
	state := cb.currentState()
	if state == StateOpen {
		cb.mu.Unlock()
		return zero, ErrCircuitOpen
	}
	cb.mu.Unlock()

	result, err := fn()

	var skip *uncounted
	if errors.As(err, &skip) {
		return zero, skip.err
	}

	cb.mu.Lock()
	from := cb.currentState()
	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = StateOpen
		}
	} else {
		cb.failures = 0
		cb.state = StateClosed
	}
	to := cb.state
	cb.mu.Unlock()

	if from != to && cb.onChange != nil {
		cb.onChange(cb.name, from, to)
	}
	if err != nil {
		return zero, err
	}
	return result, nil
}
