package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"librarydesk/internal/circulation"
)

// errWriteConflict marks an attempt that lost a race with another
// transaction. It never escapes the package: exhausted retries surface as
// circulation.ErrConflict.
var errWriteConflict = errors.New("write conflict")

// RetryPolicy bounds the re-execution of a conflicting transaction.
type RetryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy allows five attempts with backoff from 10ms to 200ms.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:       5,
	InitialBackoff: 10 * time.Millisecond,
	MaxBackoff:     200 * time.Millisecond,
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryPolicy.Attempts
	}
	if p.InitialBackoff < 0 {
		p.InitialBackoff = 0
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	return p
}

// retryOnConflict runs op until it succeeds, fails with an error that
// retryable rejects, or runs out of attempts.
func retryOnConflict(ctx context.Context, policy RetryPolicy, retryable func(error) bool, op func() error) error {
	policy = policy.normalized()
	delay := policy.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == policy.Attempts {
			break
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%w: %v", circulation.ErrConflict, ctx.Err())
			case <-timer.C:
			}
		}
		delay *= 2
		if delay > policy.MaxBackoff {
			delay = policy.MaxBackoff
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", circulation.ErrConflict, policy.Attempts, lastErr)
}
