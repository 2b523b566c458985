package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{Interval: time.Millisecond, MaxAttempts: attempts}
}

func TestUntilStopsAfterExactlyMaxAttempts(t *testing.T) {
	calls := 0
	err := Until(context.Background(), fastPolicy(60), func(_ context.Context, attempt int) (bool, error) {
		calls++
		assert.Equal(t, calls, attempt)
		return false, nil
	})

	require.ErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, 60, calls)
	assert.Contains(t, err.Error(), "after 60 attempts")
}

func TestUntilReturnsWhenDone(t *testing.T) {
	calls := 0
	err := Until(context.Background(), fastPolicy(60), func(_ context.Context, attempt int) (bool, error) {
		calls++
		return attempt == 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestUntilTerminalErrorStopsImmediately(t *testing.T) {
	terminal := errors.New("project creation failed")
	calls := 0
	err := Until(context.Background(), fastPolicy(60), func(_ context.Context, attempt int) (bool, error) {
		calls++
		if attempt == 2 {
			return false, terminal
		}
		return false, nil
	})

	require.ErrorIs(t, err, terminal)
	assert.NotErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, 2, calls)
}

func TestUntilSingleAttempt(t *testing.T) {
	calls := 0
	err := Until(context.Background(), fastPolicy(1), func(context.Context, int) (bool, error) {
		calls++
		return false, nil
	})

	require.ErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, 1, calls)
}

func TestUntilHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Until(ctx, Policy{Interval: time.Hour, MaxAttempts: 60}, func(context.Context, int) (bool, error) {
		calls++
		cancel()
		return false, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPolicyDefaults(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 5*time.Second, p.Interval)
	assert.Equal(t, 60, p.MaxAttempts)

	n := Policy{Interval: -time.Second}.normalized()
	assert.Equal(t, time.Duration(0), n.Interval)
	assert.Equal(t, DefaultMaxAttempts, n.MaxAttempts)
}
