package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{MaxAttempts: maxAttempts, InitialBackoff: time.Millisecond}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastPolicy(5), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection refused")
		}
		return "connected", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "connected", result)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cause := errors.New("connection refused")
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		return "", cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.ErrorContains(t, err, "after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestDo_BackoffDoubles(t *testing.T) {
	var backoffs []time.Duration
	policy := Policy{
		MaxAttempts:    4,
		InitialBackoff: time.Millisecond,
		OnRetry: func(_ int, _ error, backoff time.Duration) {
			backoffs = append(backoffs, backoff)
		},
	}

	_, err := Do(context.Background(), policy, func() (struct{}, error) {
		return struct{}{}, errors.New("down")
	})

	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		time.Millisecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
	}, backoffs)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, Policy{MaxAttempts: 5, InitialBackoff: time.Minute}, func() (struct{}, error) {
		return struct{}{}, errors.New("down")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoVoid(t *testing.T) {
	calls := 0
	err := DoVoid(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 2 {
			return errors.New("down")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
