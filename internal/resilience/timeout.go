package resilience

import (
	"context"
	"time"
)

// WithTimeout races op against a timer. When the timer wins the caller gets
// a TimeoutError and the abandoned operation's eventual result is drained
// on a buffered channel so its goroutine never leaks. The derived context
// is cancelled either way, which stops any op that honors cancellation;
// ops that do not are documented fire-and-forget.
func WithTimeout(ctx context.Context, timeout time.Duration, label string, op func(ctx context.Context) error) error {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(opCtx)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return &TimeoutError{Label: label, Timeout: timeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}
