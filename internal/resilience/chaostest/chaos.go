// Package chaostest injects synthetic Transient failures into a
// writer.Writer, for exercising the retry policy and batch failure
// analyzer (spec §4.H, Testable Property 8, Scenario S8).
//
// Grounded directly on the teacher's internal/source/logical/chaos.go
// WithChaos/chaosDialect/doChaos: a decorator wrapping one interface
// implementation, injecting errors at a configurable probability,
// forwarding everything else to the delegate.
package chaostest

import (
	"context"
	"math/rand"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
	"github.com/streamctl/streamctl/internal/writer"
)

// ErrChaos is the sentinel wrapped by every injected failure.
var ErrChaos = errkind.New(errkind.Transient, "chaos")

// WithChaos returns a wrapper around delegate that fails WriteBatch
// with a Transient error with probability prob on each call, up to
// failCount times total, after which it always forwards to delegate.
// A failCount of 0 injects chaos on every call. delegate is returned
// unwrapped if prob <= 0.
func WithChaos(delegate writer.Writer, prob float32, failCount int) writer.Writer {
	if prob <= 0 {
		return delegate
	}
	return &chaosWriter{delegate: delegate, prob: prob, failCount: failCount}
}

type chaosWriter struct {
	delegate  writer.Writer
	prob      float32
	failCount int
	failed    int
}

var _ writer.Writer = (*chaosWriter)(nil)

func (w *chaosWriter) InspectTarget(ctx context.Context) (schema.TargetSchema, bool, error) {
	return w.delegate.InspectTarget(ctx)
}

func (w *chaosWriter) Initialize(
	ctx context.Context, in schema.Schema, compat schema.CompatibilityReport,
) (schema.Schema, error) {
	return w.delegate.Initialize(ctx, in, compat)
}

func (w *chaosWriter) WriteBatch(ctx context.Context, batch schema.Batch) error {
	if (w.failCount == 0 || w.failed < w.failCount) && rand.Float32() < w.prob {
		w.failed++
		return doChaos("WriteBatch")
	}
	return w.delegate.WriteBatch(ctx, batch)
}

func (w *chaosWriter) Complete(ctx context.Context) error {
	return w.delegate.Complete(ctx)
}

func (w *chaosWriter) Dispose() error {
	return w.delegate.Dispose()
}

// doChaos is a convenient place to set a breakpoint.
func doChaos(msg string) error {
	return errkind.Wrap(errkind.Transient, ErrChaos, msg)
}
