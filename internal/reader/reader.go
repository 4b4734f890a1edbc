// Package reader implements the Reader contract (spec §4.B): open,
// lazily produce batches, and dispose.
package reader

import (
	"context"

	"github.com/streamctl/streamctl/internal/schema"
)

// Reader is implemented by every source: relational queries, columnar
// files, line-oriented text, and the synthetic generator.
type Reader interface {
	// Open populates the reader's schema and performs query
	// validation. Must be called exactly once, before ReadBatches.
	Open(ctx context.Context) error

	// Schema returns the schema discovered by Open. Calling it before
	// Open returns the zero Schema.
	Schema() schema.Schema

	// ReadBatches returns a channel of batches of at most batchSize
	// rows; the final batch may be smaller. The channel is closed
	// when the source is exhausted, the context is cancelled, or an
	// error occurs — callers must drain Err() after the channel
	// closes to distinguish "exhausted" from "failed".
	ReadBatches(ctx context.Context, batchSize int) <-chan schema.Batch

	// Err returns the first error encountered during ReadBatches, if
	// any. Only meaningful after the ReadBatches channel has closed.
	Err() error

	// Dispose releases all resources. Safe to call multiple times.
	Dispose() error
}
