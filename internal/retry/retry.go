// Package retry repeats calls that failed on a transient rate limit.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/cenkalti/backoff/v4"

	"vnpatch/internal/script"
)

// Policy is a fixed-delay retry budget.
type Policy struct {
	Delay    time.Duration
	Attempts int // total calls, including the first
}

// DefaultPolicy waits five seconds between at most five attempts.
func DefaultPolicy() Policy {
	return Policy{Delay: 5 * time.Second, Attempts: 5}
}

// Do calls fn until it succeeds, fails with an error that is not
// script.ErrRateLimited, or the attempts run out. Exhaustion returns the
// last error wrapped with the attempt count.
func Do(ctx context.Context, p Policy, op string, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var b backoff.BackOff = backoff.NewConstantBackOff(p.Delay)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	n := 0
	err := backoff.RetryNotify(func() error {
		n++
		err := fn()
		if err == nil || errors.Is(err, script.ErrRateLimited) {
			return err
		}
		return backoff.Permanent(err)
	}, b, func(err error, wait time.Duration) {
		log.WithFields(log.Fields{
			"op":      op,
			"attempt": n,
			"wait":    wait,
		}).Warnf("rate limited: %v", err)
	})
	if err != nil && errors.Is(err, script.ErrRateLimited) {
		return fmt.Errorf("retry: %s gave up after %d attempts: %w", op, n, err)
	}
	return err
}
