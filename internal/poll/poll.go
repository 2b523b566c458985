// Package poll runs fixed-interval status checks with a hard attempt cap.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 60
)

// ErrTimedOut is returned when the attempt budget is exhausted before the check
// reported completion. The outcome of the watched operation is unknown.
var ErrTimedOut = errors.New("status unknown, status check exited")

var errNotYet = errors.New("not yet")

// Policy controls how often and how many times a check runs.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPolicy checks every 5 seconds, at most 60 times.
func DefaultPolicy() Policy {
	return Policy{Interval: DefaultInterval, MaxAttempts: DefaultMaxAttempts}
}

func (p Policy) normalized() Policy {
	if p.Interval < 0 {
		p.Interval = 0
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	return p
}

// CheckFunc inspects the watched resource. It returns true once the target state
// is reached. A non-nil error is terminal and stops polling immediately.
type CheckFunc func(ctx context.Context, attempt int) (bool, error)

// Until runs check until it reports done, fails, the context ends, or
// p.MaxAttempts checks have been made, whichever comes first. The first check
// runs immediately and later ones are spaced p.Interval apart.
func Until(ctx context.Context, p Policy, check CheckFunc) error {
	p = p.normalized()

	attempt := 0
	operation := func() error {
		attempt++
		done, err := check(ctx, attempt)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !done {
			return errNotYet
		}
		return nil
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if p.MaxAttempts > 1 {
		b = backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(p.MaxAttempts-1))
	}

	notify := func(_ error, wait time.Duration) {
		slog.Debug("Sleeping before re-checking status.", "attempt", attempt, "maxAttempts", p.MaxAttempts, "wait", wait.String())
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
	if errors.Is(err, errNotYet) {
		return fmt.Errorf("%w after %d attempts", ErrTimedOut, attempt)
	}
	return err
}
