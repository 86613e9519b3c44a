package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/chatblock-ai/chatblock/internal/provider"
)

const (
	defaultMaxRetries = 2
	baseRetryDelay    = 2 * time.Second
	maxRetryDelay     = 30 * time.Second
	jitterPercent     = 30 // ±30% jitter
)

// isRetryable reports whether a dispatch failure is worth retrying:
// rate limits and server faults are, cancellation and client errors are not.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perr *provider.ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable()
	}
	var terr *provider.TransportError
	return errors.As(err, &terr)
}

// retryDelay returns the delay for attempt n (0-indexed) with jitter.
func retryDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for range attempt {
		delay *= 2
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	jitter := time.Duration(rand.IntN(int(delay)*jitterPercent*2/100)) - time.Duration(int(delay)*jitterPercent/100)
	return delay + jitter
}

// retrySleep is stubbed in tests to avoid real backoff delays.
var retrySleep = sleepWithContext

// sleepWithContext sleeps for d, but returns early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
