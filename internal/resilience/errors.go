package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// TimeoutError reports that an operation lost the race against its timer.
type TimeoutError struct {
	Label   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Label, e.Timeout)
}

// RetryExhaustedError reports that every retry attempt failed.
type RetryExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.LastErr
}

// CircuitBreakerError is returned while a breaker is open. It is not
// retryable: hammering an open breaker only burns the retry budget.
type CircuitBreakerError struct {
	Name string
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open", e.Name)
}

var transientMarkers = []string{
	"429",
	"too many requests",
	"rate limit",
	"quota",
	"connection reset",
	"connection refused",
	"unexpected eof",
	"status 500",
	"status 502",
	"status 503",
	"status 504",
	"api error 500",
	"api error 502",
	"api error 503",
	"api error 504",
}

// IsRetryable is the default retry condition: transient network conditions,
// timeouts, rate limiting and 5xx-equivalent upstream errors. Open-breaker
// errors and cancellation are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var cbErr *CircuitBreakerError
	if errors.As(err, &cbErr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var toErr *TimeoutError
	if errors.As(err, &toErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
