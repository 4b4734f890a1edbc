package reader

import (
	"context"
	"sync"
	"time"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// GenerateReader emits N rows with a single GenerateIndex: Int64
// column (spec §6's generate:N synthetic source), optionally throttled
// to a target rows-per-second rate.
type GenerateReader struct {
	N             int64
	RowsPerSecond float64

	sc      schema.Schema
	mu      sync.Mutex
	lastErr error
}

var _ Reader = (*GenerateReader)(nil)

func (g *GenerateReader) Open(ctx context.Context) error {
	if g.N < 0 {
		return errkind.New(errkind.InvalidArgument, "generate row count must be >= 0")
	}
	sc, err := schema.Build([]schema.Column{
		{Name: "GenerateIndex", LogicalType: schema.Int64, Nullable: false},
	})
	if err != nil {
		return err
	}
	g.sc = sc
	return nil
}

func (g *GenerateReader) Schema() schema.Schema { return g.sc }

func (g *GenerateReader) ReadBatches(ctx context.Context, batchSize int) <-chan schema.Batch {
	out := make(chan schema.Batch)
	go func() {
		defer close(out)
		start := nowFunc()
		var produced int64
		for produced < g.N {
			select {
			case <-ctx.Done():
				return
			default:
			}
			n := batchSize
			if remaining := g.N - produced; int64(n) > remaining {
				n = int(remaining)
			}
			rows := make([]schema.Row, n)
			for i := 0; i < n; i++ {
				rows[i] = schema.Row{produced + int64(i)}
			}
			produced += int64(n)

			if g.RowsPerSecond > 0 {
				expectedElapsed := time.Duration(float64(produced) / g.RowsPerSecond * float64(time.Second))
				actualElapsed := nowFunc().Sub(start)
				if wait := expectedElapsed - actualElapsed; wait > 0 {
					select {
					case <-ctx.Done():
						return
					case <-timeAfter(wait):
					}
				}
			}

			select {
			case out <- schema.Batch{Schema: g.sc, Rows: rows}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// nowFunc and timeAfter are indirections so tests can make throttling
// deterministic without sleeping in real time.
var nowFunc = time.Now
var timeAfter = time.After

func (g *GenerateReader) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

func (g *GenerateReader) Dispose() error { return nil }
