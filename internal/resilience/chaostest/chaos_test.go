package chaostest

import (
	"context"
	"testing"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
	"github.com/streamctl/streamctl/internal/writer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWriter struct {
	writes int
}

var _ writer.Writer = (*countingWriter)(nil)

func (w *countingWriter) InspectTarget(ctx context.Context) (schema.TargetSchema, bool, error) {
	return schema.TargetSchema{}, false, nil
}
func (w *countingWriter) Initialize(ctx context.Context, in schema.Schema, compat schema.CompatibilityReport) (schema.Schema, error) {
	return in, nil
}
func (w *countingWriter) WriteBatch(ctx context.Context, batch schema.Batch) error {
	w.writes++
	return nil
}
func (w *countingWriter) Complete(ctx context.Context) error { return nil }
func (w *countingWriter) Dispose() error                     { return nil }

func TestWithChaosZeroProbabilityReturnsDelegateUnwrapped(t *testing.T) {
	delegate := &countingWriter{}
	w := WithChaos(delegate, 0, 0)
	assert.Same(t, delegate, w, "prob <= 0 must hand back the delegate unwrapped")
}

func TestWithChaosFailsUpToFailCountThenForwards(t *testing.T) {
	delegate := &countingWriter{}
	w := WithChaos(delegate, 1, 2)

	batch := schema.Batch{}
	err := w.WriteBatch(context.Background(), batch)
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.Transient))

	err = w.WriteBatch(context.Background(), batch)
	require.Error(t, err)

	err = w.WriteBatch(context.Background(), batch)
	require.NoError(t, err, "after failCount failures, every call must forward to the delegate")
	assert.Equal(t, 1, delegate.writes)
}

func TestWithChaosForwardsLifecycleCallsUntouched(t *testing.T) {
	delegate := &countingWriter{}
	w := WithChaos(delegate, 1, 1)

	_, _, err := w.InspectTarget(context.Background())
	require.NoError(t, err)
	_, err = w.Initialize(context.Background(), schema.Schema{}, schema.CompatibilityReport{})
	require.NoError(t, err)
	require.NoError(t, w.Complete(context.Background()))
	require.NoError(t, w.Dispose())
}
