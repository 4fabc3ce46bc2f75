// Package poll provides a bounded-retry barrier: re-check a condition at a
// fixed interval until it holds or the attempt budget runs out.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy bounds a poll. MaxAttempts counts re-polls after the first check,
// so a barrier checks at most MaxAttempts+1 times and sleeps at most
// MaxAttempts*Interval.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPolicy waits up to 5 re-polls, 5 seconds apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, Interval: 5 * time.Second}
}

// CheckFunc reports whether the awaited condition holds.
type CheckFunc func(ctx context.Context) (bool, error)

// Result describes how a wait ended.
type Result struct {
	// Satisfied is true when the condition held before the budget ran out.
	Satisfied bool
	// Checks is the number of times the condition was evaluated.
	Checks int
}

// Barrier waits for a condition. It is best-effort: an exhausted budget is
// a normal outcome, not an error.
type Barrier interface {
	Wait(ctx context.Context, check CheckFunc) (Result, error)
}

var errPending = errors.New("condition not yet satisfied")

// RetryBarrier is a Barrier with a constant backoff and a maximum retry count.
type RetryBarrier struct {
	policy Policy
}

// NewRetryBarrier creates a RetryBarrier. Negative values are treated as zero.
func NewRetryBarrier(policy Policy) *RetryBarrier {
	if policy.MaxAttempts < 0 {
		policy.MaxAttempts = 0
	}
	if policy.Interval < 0 {
		policy.Interval = 0
	}
	return &RetryBarrier{policy: policy}
}

// Policy returns the barrier's policy.
func (b *RetryBarrier) Policy() Policy {
	return b.policy
}

// Wait evaluates check until it reports true, it returns an error, the
// retry budget is spent, or ctx is done. Only check errors and context
// cancellation are returned as errors.
func (b *RetryBarrier) Wait(ctx context.Context, check CheckFunc) (Result, error) {
	var res Result
	backoff := retry.WithMaxRetries(uint64(b.policy.MaxAttempts), retry.NewConstant(b.interval()))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res.Checks++
		ok, err := check(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(errPending)
		}
		res.Satisfied = true
		return nil
	})
	if errors.Is(err, errPending) {
		return res, nil
	}
	return res, err
}

// retry.NewConstant panics on a non-positive duration.
func (b *RetryBarrier) interval() time.Duration {
	if b.policy.Interval <= 0 {
		return time.Nanosecond
	}
	return b.policy.Interval
}
