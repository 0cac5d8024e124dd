package resilience

import (
	"context"
	"time"

	"github.com/hmkim/marketbrief/internal/logging"
)

// RetryConfig configures retry behavior. Delay before attempt n (n >= 2)
// is min(BaseDelay * Multiplier^(n-2), MaxDelay).
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64

	// RetryIf decides whether a failure is worth another attempt. A nil
	// RetryIf retries every error.
	RetryIf func(error) bool

	// OnRetry runs before each backoff delay. It is best effort: a panic
	// inside the hook is logged and never alters control flow.
	OnRetry func(err error, attempt int)
}

// DefaultRetryConfig returns sensible retry defaults for network calls.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		RetryIf:    IsRetryable,
	}
}

// WithRetry executes op up to MaxRetries+1 times with exponential backoff.
// Attempts are strictly sequential. When RetryIf rejects an error it
// propagates unwrapped; on exhaustion the last error is wrapped in a
// RetryExhaustedError.
func WithRetry(ctx context.Context, config *RetryConfig, op func(ctx context.Context) error) error {
	attempts := config.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if config.RetryIf != nil && !config.RetryIf(err) {
			return err
		}

		runRetryHook(config.OnRetry, err, attempt)

		delay := backoffDelay(config, attempt)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return &RetryExhaustedError{Attempts: attempts, LastErr: lastErr}
}

// backoffDelay computes the sleep after the given failed attempt.
func backoffDelay(config *RetryConfig, failedAttempt int) time.Duration {
	delay := float64(config.BaseDelay)
	for i := 1; i < failedAttempt; i++ {
		delay *= config.Multiplier
	}
	if max := float64(config.MaxDelay); delay > max {
		delay = max
	}
	return time.Duration(delay)
}

func runRetryHook(hook func(error, int), err error, attempt int) {
	if hook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Log.WithField("panic", r).Warn("retry hook panicked")
		}
	}()
	hook(err, attempt)
}
