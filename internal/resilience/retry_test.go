package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRetrySucceedsAfterTransientFailures exercises Scenario S8: a
// writer that fails twice with a retryable error and succeeds on the
// third attempt must take at least InitialDelay + 2*InitialDelay of
// wall-clock (the backoff before attempts 2 and 3) and return nil.
func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, InitialDelay: 10 * time.Millisecond}

	var calls int
	start := time.Now()
	err := p.Do(context.Background(), "write", func() error {
		calls++
		if calls < 3 {
			return errkind.New(errkind.Transient, "temporary failure")
		}
		return nil
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond}

	var calls int
	err := p.Do(context.Background(), "write", func() error {
		calls++
		return errkind.New(errkind.Transient, "always fails")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, errkind.Is(err, errkind.Transient))
}

func TestRetryNeverRetriesCancellation(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, InitialDelay: time.Millisecond}

	var calls int
	err := p.Do(context.Background(), "write", func() error {
		calls++
		return errkind.New(errkind.Cancelled, "ctx done")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "a cancellation error must propagate on the first attempt")
}

func TestRetryNeverRetriesInvalidConfiguration(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, InitialDelay: time.Millisecond}

	var calls int
	err := p.Do(context.Background(), "write", func() error {
		calls++
		return errkind.New(errkind.InvalidConfiguration, "bad table name")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "a configuration error will fail identically on every retry, so it is not retried")
}

func TestRetryAbortsImmediatelyOnContextCancellationDuringBackoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, InitialDelay: 50 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, "write", func() error {
		calls++
		return errkind.New(errkind.Transient, "still failing")
	})

	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.Cancelled))
	assert.Less(t, calls, 5, "cancellation during backoff must cut the retry loop short")
}
