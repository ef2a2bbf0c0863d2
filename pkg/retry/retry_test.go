package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/ekarpov/bookvault/pkg/retry"
)

var errTransient = errors.New("transient")

func TestDo_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(context.Background(),
		retry.Policy{Attempts: 3, BaseDelay: time.Millisecond},
		func(err error) bool { return errors.Is(err, errTransient) },
		func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDo_ExhaustsBound(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(context.Background(),
		retry.Policy{Attempts: 3, BaseDelay: time.Millisecond},
		func(err error) bool { return true },
		func(ctx context.Context) error {
			calls++
			return errTransient
		})
	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 3, calls)
}

func TestDo_NonRetryableAbortsImmediately(t *testing.T) {
	t.Parallel()

	fatal := errors.New("fatal")
	calls := 0
	err := retry.Do(context.Background(),
		retry.Policy{Attempts: 5, BaseDelay: time.Millisecond},
		func(err error) bool { return errors.Is(err, errTransient) },
		func(ctx context.Context) error {
			calls++
			return fatal
		})
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retry.Do(ctx,
		retry.Policy{Attempts: 3, BaseDelay: time.Second},
		func(err error) bool { return true },
		func(ctx context.Context) error { return errTransient })
	require.ErrorIs(t, err, context.Canceled)
}
