package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
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

// BreakerStats are aggregate per-dependency call counters, kept regardless
// of state for observability.
type BreakerStats struct {
	Requests  uint64
	Successes uint64
	Failures  uint64
	Timeouts  uint64
}

// CircuitBreaker isolates one named upstream dependency. Construct one
// instance per dependency at process start and pass it by reference into
// every caller; state is mutated only through Execute.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration

	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	openedAt            time.Time
	trialInFlight       bool
	stats               BreakerStats

	now func() time.Time
}

func NewCircuitBreaker(name string, failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

func (cb *CircuitBreaker) Name() string { return cb.name }

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

// Execute runs op through the breaker state machine. While open, calls
// fail fast with a CircuitBreakerError without touching the dependency;
// after the recovery timeout one trial call is allowed through.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := op(ctx)
	cb.afterCall(err)
	return err
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.Requests++

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.recoveryTimeout {
			return &CircuitBreakerError{Name: cb.name}
		}
		cb.state = StateHalfOpen
		cb.trialInFlight = true
		return nil
	case StateHalfOpen:
		if cb.trialInFlight {
			// exactly one trial call during half-open
			return &CircuitBreakerError{Name: cb.name}
		}
		cb.trialInFlight = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.trialInFlight = false
	}

	if err == nil {
		cb.stats.Successes++
		cb.state = StateClosed
		cb.consecutiveFailures = 0
		return
	}

	cb.stats.Failures++
	var toErr *TimeoutError
	if errors.As(err, &toErr) {
		cb.stats.Timeouts++
	}

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateOpen
		cb.openedAt = cb.now()
	default:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	}
}

// StatsLine renders the aggregate counters for failure-context logging.
func (cb *CircuitBreaker) StatsLine() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return fmt.Sprintf("%s state=%s requests=%d successes=%d failures=%d timeouts=%d",
		cb.name, cb.state, cb.stats.Requests, cb.stats.Successes, cb.stats.Failures, cb.stats.Timeouts)
}
