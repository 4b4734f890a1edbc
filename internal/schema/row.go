package schema

// Row is a fixed-length positional vector of values keyed by the
// current schema's column order (spec §3). Rows are plain data: they
// may be freely mutated in place by a single-threaded transformer step,
// but once handed downstream they're owned by that stage.
type Row []any

// Clone returns a shallow copy of the row, safe to hand to a stage that
// must not observe subsequent in-place mutation of the original.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Get returns the value at position i, or NullValue if i is out of
// range (used defensively by transformers projecting onto a wider
// output schema).
func (r Row) Get(i int) any {
	if i < 0 || i >= len(r) {
		return NullValue
	}
	return r[i]
}

// Set assigns v at position i if i is in range; it is a no-op
// otherwise (callers that resolve column indices once at initialize()
// should never pass an out-of-range index in practice).
func (r Row) Set(i int, v any) {
	if i >= 0 && i < len(r) {
		r[i] = v
	}
}

// Batch is an ordered sequence of rows sharing one schema (spec §3).
// The writer only ever receives Batches, never individual rows.
type Batch struct {
	Schema Schema
	Rows   []Row
}

// Len returns the number of rows in the batch.
func (b Batch) Len() int { return len(b.Rows) }

// DefaultBatchSize is the tuning parameter spec §3 calls out as
// defaulting to 50,000 rows.
const DefaultBatchSize = 50_000
