package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithTimeoutFastOperation(t *testing.T) {
	err := WithTimeout(context.Background(), time.Second, "fast", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestWithTimeoutSlowOperation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	err := WithTimeout(context.Background(), 20*time.Millisecond, "slow", func(ctx context.Context) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	var toErr *TimeoutError
	if !errors.As(err, &toErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if toErr.Label != "slow" || toErr.Timeout != 20*time.Millisecond {
		t.Fatalf("timeout error missing context: %+v", toErr)
	}
}

func TestWithTimeoutPropagatesOpError(t *testing.T) {
	boom := errors.New("boom")
	err := WithTimeout(context.Background(), time.Second, "op", func(ctx context.Context) error {
		return boom
	})
	if err != boom {
		t.Fatalf("expected op error, got %v", err)
	}
}

func TestWithTimeoutCancelsDerivedContext(t *testing.T) {
	cancelled := make(chan struct{})
	_ = WithTimeout(context.Background(), 10*time.Millisecond, "op", func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatalf("operation context was not cancelled after timeout")
	}
}
