// Package engine implements the three-stage pipeline (spec §4.G):
// Reader -> Q1 -> Transform chain -> Q2 -> Writer, with a shared
// cancellation signal, block-on-full backpressure, and reverse-order
// disposal of every owned component.
//
// Grounded on the teacher's internal/source/cdc/resolver.go readInto/
// Process pair (a producer goroutine feeding a channel that a consumer
// goroutine drains, both select-ing on ctx.Done()/a stopping signal),
// generalized from one CDC resolved-timestamp loop into three
// generic stages. Per spec Design Note ("Coroutine/async iteration")
// and DESIGN.md's grounding entry, this uses stdlib context/sync
// rather than golang.org/x/sync/errgroup, matching the teacher's own
// choice to build its stopper/notify primitives on the standard
// library instead of a third-party scheduler.
package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/streamctl/streamctl/internal/compat"
	"github.com/streamctl/streamctl/internal/dialect"
	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/metrics"
	"github.com/streamctl/streamctl/internal/reader"
	"github.com/streamctl/streamctl/internal/resilience"
	"github.com/streamctl/streamctl/internal/schema"
	"github.com/streamctl/streamctl/internal/transform"
	"github.com/streamctl/streamctl/internal/writer"
)

// queue1Capacity and queue2Capacity are the bounded-channel capacities
// spec §4.G fixes: Q1 holds individual rows, Q2 holds whole batches.
const (
	queue1Capacity = 1000
	queue2Capacity = 100
)

// Config parameterizes one pipeline run. Reader, Chain and Writer are
// owned exclusively by the Engine for the run's duration (spec §3
// "Ownership"). Before Run returns it disposes the Writer and then the
// Reader; the Chain has no dispose step.
type Config struct {
	Reader  reader.Reader
	Chain   *transform.Chain
	Writer  writer.Writer
	Dialect dialect.Dialect

	BatchSize    int     // default schema.DefaultBatchSize
	SamplingRate float64 // (0,1]; 0 or 1 means no sub-sampling
	Seed         *int64  // seeds the sampling PRNG when set
	Limit        int64   // 0 means unlimited

	Retry resilience.RetryPolicy
}

// Engine runs one pipeline to completion.
type Engine struct {
	cfg      Config
	progress Progress
}

// New constructs an Engine for cfg, filling in defaults for unset
// tuning parameters.
func New(cfg Config) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = schema.DefaultBatchSize
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = resilience.DefaultRetryPolicy()
	}
	return &Engine{cfg: cfg}
}

// Progress returns the engine's live counters; safe to poll
// concurrently with Run.
func (e *Engine) Progress() *Progress { return &e.progress }

// Run executes the pipeline: open the reader, initialize the
// transformer chain and writer, run the three stages to completion (or
// until ctx is cancelled or a stage fails), then dispose every owned
// component in reverse order. The returned int64 is the total number
// of rows the writer accepted (spec §4.G "Final return value").
func (e *Engine) Run(ctx context.Context) (int64, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := e.cfg.Reader.Open(runCtx); err != nil {
		return 0, err
	}
	defer func() {
		if err := e.cfg.Reader.Dispose(); err != nil {
			log.WithError(err).Warn("error disposing reader")
		}
	}()

	effective, err := e.cfg.Chain.Initialize(e.cfg.Reader.Schema())
	if err != nil {
		return 0, err
	}

	target, _, err := e.cfg.Writer.InspectTarget(runCtx)
	if err != nil {
		return 0, err
	}
	// A Recreate strategy drops and rebuilds the target to match the
	// source exactly (spec §4.C), so the report that gates Initialize
	// must be computed as though the (about to be dropped) target
	// didn't exist.
	if sa, ok := e.cfg.Writer.(writer.StrategyAware); ok && sa.WriteStrategy() == writer.Recreate {
		target = schema.TargetSchema{}
	}
	report := compat.Analyze(effective, target, e.cfg.Dialect)
	if !report.IsAcceptable() {
		return 0, errkind.Newf(errkind.SchemaIncompatible,
			"source schema incompatible with target: %v", report.Errors)
	}

	finalSchema, err := e.cfg.Writer.Initialize(runCtx, effective, report)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := e.cfg.Writer.Dispose(); err != nil {
			log.WithError(err).Warn("error disposing writer")
		}
	}()

	rowCh := make(chan schema.Row, queue1Capacity)
	batchCh := make(chan schema.Batch, queue2Capacity)

	var (
		wg       sync.WaitGroup
		firstErr error
		mu       sync.Mutex
		written  int64
	)
	fail := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(rowCh)
		if err := e.produce(runCtx, rowCh); err != nil {
			fail(err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(batchCh)
		if err := e.transformStage(runCtx, finalSchema, rowCh, batchCh); err != nil {
			fail(err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		n, err := e.consume(runCtx, batchCh)
		written = n
		if err != nil {
			fail(err)
		}
	}()

	wg.Wait()

	// Always finalize the writer, even on failure, per spec §4.G
	// ("the engine always invokes writer.complete() before returning
	// success; on failure it still disposes writer... in reverse
	// creation order") — Complete is the finalization step, Dispose
	// (deferred above) is the resource-release step.
	if completeErr := e.cfg.Writer.Complete(ctx); completeErr != nil && firstErr == nil {
		firstErr = completeErr
	}

	return written, firstErr
}

// produce iterates the reader's batches, applies sampling and limit,
// and sends individual rows into rowCh (spec §4.G "Producer stage").
func (e *Engine) produce(ctx context.Context, rowCh chan<- schema.Row) error {
	var rng *rand.Rand
	if e.cfg.Seed != nil {
		rng = rand.New(rand.NewSource(*e.cfg.Seed))
	}

	var produced int64
	batches := e.cfg.Reader.ReadBatches(ctx, e.cfg.BatchSize)
	for batch := range batches {
		for _, row := range batch.Rows {
			if e.cfg.Limit > 0 && produced >= e.cfg.Limit {
				// Spec §4.G: "If the limit is reached mid-batch the
				// producer closes Q1 and ignores subsequent reader
				// output." Returning here lets the deferred close(rowCh)
				// in Run's goroutine fire; the range over batches above
				// is abandoned, which is fine since the reader observes
				// ctx cancellation on its own suspension points.
				return nil
			}
			if e.cfg.SamplingRate > 0 && e.cfg.SamplingRate < 1 {
				var draw float64
				if rng != nil {
					draw = rng.Float64()
				} else {
					draw = rand.Float64()
				}
				if draw >= e.cfg.SamplingRate {
					continue
				}
			}
			e.progress.addRead(1)
			metrics.RowsRead.Inc()
			produced++
			select {
			case rowCh <- row:
			case <-ctx.Done():
				return nil
			}
		}
	}
	return e.cfg.Reader.Err()
}

// transformStage threads each row from rowCh through the transformer
// chain, buffers emitted rows into batches of BatchSize, and sends
// full batches into batchCh (spec §4.G "Transform stage"). On rowCh
// close, every transformer's Flush runs in pipeline order and its
// output is threaded through downstream stages before the tail batch
// is drained.
func (e *Engine) transformStage(
	ctx context.Context, outSchema schema.Schema, rowCh <-chan schema.Row, batchCh chan<- schema.Batch,
) error {
	var buf []schema.Row
	flushBuf := func() error {
		if len(buf) == 0 {
			return nil
		}
		b := schema.Batch{Schema: outSchema, Rows: buf}
		buf = nil
		select {
		case batchCh <- b:
			return nil
		case <-ctx.Done():
			return nil
		}
	}

	for row := range rowCh {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		out, err := e.cfg.Chain.Process(row)
		if err != nil {
			return err
		}
		e.progress.addTransformed(int64(len(out)))
		metrics.RowsTransformed.Add(float64(len(out)))
		buf = append(buf, out...)
		if len(buf) >= e.cfg.BatchSize {
			if err := flushBuf(); err != nil {
				return err
			}
		}
	}

	flushed, err := e.cfg.Chain.FlushAll()
	if err != nil {
		return err
	}
	e.progress.addTransformed(int64(len(flushed)))
	metrics.RowsTransformed.Add(float64(len(flushed)))
	buf = append(buf, flushed...)

	return flushBuf()
}

// consume calls the writer (under the retry policy) for every batch
// from batchCh and reports the total accepted row count (spec §4.G
// "Consumer stage").
func (e *Engine) consume(ctx context.Context, batchCh <-chan schema.Batch) (int64, error) {
	var total int64
	for batch := range batchCh {
		start := time.Now()
		err := e.cfg.Retry.Do(ctx, "writeBatch", func() error {
			return e.cfg.Writer.WriteBatch(ctx, batch)
		})
		metrics.StageDuration.WithLabelValues("writer").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.BatchWriteErrors.Inc()
			if !errkind.Is(err, errkind.Cancelled) {
				err = resilience.Diagnose(ctx, e.cfg.Writer, batch, err)
			}
			return total, err
		}
		metrics.BatchWriteDuration.Observe(time.Since(start).Seconds())
		total += int64(batch.Len())
		e.progress.addWritten(int64(batch.Len()))
		metrics.RowsWritten.Add(float64(batch.Len()))
	}
	return total, nil
}
