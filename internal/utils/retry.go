package utils

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// LinearBackOff waits Step, 2*Step, 3*Step and so on, and gives up after
// MaxRetries waits.
type LinearBackOff struct {
	Step       time.Duration
	MaxRetries int

	retries int
}

func (b *LinearBackOff) NextBackOff() time.Duration {
	if b.retries >= b.MaxRetries {
		return backoff.Stop
	}
	b.retries++
	return time.Duration(b.retries) * b.Step
}

func (b *LinearBackOff) Reset() {
	b.retries = 0
}

// Retrier runs an operation once plus up to MaxRetries more times on a
// linear schedule. Sleeps are not interrupted by context cancellation.
type Retrier struct {
	Step       time.Duration
	MaxRetries int
	// Timer overrides the wall clock; nil sleeps for real
	Timer backoff.Timer
}

// Do runs op until it succeeds, returns a backoff.Permanent error, or the
// retries run out. notify sees every failure that will be retried.
func (r Retrier) Do(op backoff.Operation, notify backoff.Notify) error {
	b := &LinearBackOff{Step: r.Step, MaxRetries: r.MaxRetries}
	return backoff.RetryNotifyWithTimer(op, b, notify, r.Timer)
}
