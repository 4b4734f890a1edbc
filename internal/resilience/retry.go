// Package resilience implements spec §4.H: the writer-boundary retry
// policy and the batch failure analyzer that turns an opaque
// WriteBatch failure into a per-row, per-column diagnostic.
package resilience

import (
	"context"
	"time"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/metrics"
	log "github.com/sirupsen/logrus"
)

// RetryPolicy governs retries of writer.WriteBatch only (spec §4.H).
// Attempt k waits InitialDelay * 2^(k-1) before retrying.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// DefaultRetryPolicy matches spec §4.H's defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second}
}

// Do runs fn, retrying on any non-cancellation, non-configuration
// error up to MaxAttempts times total. Cancellation errors propagate
// immediately (spec §4.H, §7).
func (p RetryPolicy) Do(ctx context.Context, label string, fn func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	delay := p.InitialDelay
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if errkind.Is(err, errkind.Cancelled) {
			return err
		}
		if !errkind.Retryable(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		wait := delay * (1 << uint(attempt-1))
		metrics.RetryAttempts.Inc()
		log.WithFields(log.Fields{
			"op":      label,
			"attempt": attempt,
			"wait":    wait,
		}).Warnf("retrying after error: %v", err)

		select {
		case <-ctx.Done():
			return errkind.Wrap(errkind.Cancelled, ctx.Err(), "retry aborted by cancellation")
		case <-sleepChan(wait):
		}
	}
	return lastErr
}

func sleepChan(d time.Duration) <-chan time.Time {
	t := time.NewTimer(d)
	return t.C
}
