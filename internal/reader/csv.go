package reader

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"sync"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// CSVOptions configures the CSV reader (spec §6).
type CSVOptions struct {
	Separator rune
	Header    bool
}

// DefaultCSVOptions mirrors the common defaults used across the pack's
// readers: comma-separated, header present.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Separator: ',', Header: true}
}

// CSVReader reads comma (or other) separated values, discovering its
// schema from the header row if present, otherwise synthesizing
// column names col1..colN. All values are string-carrier (spec §6:
// typing, where applicable, happens at the sink).
type CSVReader struct {
	src     io.ReadCloser
	opts    CSVOptions
	r       *csv.Reader
	sc      schema.Schema
	pending []string
	mu      sync.Mutex
	lastErr error
}

var _ Reader = (*CSVReader)(nil)

// NewCSVReader constructs a CSVReader over src, which is closed by
// Dispose.
func NewCSVReader(src io.ReadCloser, opts CSVOptions) *CSVReader {
	return &CSVReader{src: src, opts: opts}
}

func (r *CSVReader) Open(ctx context.Context) error {
	r.r = csv.NewReader(r.src)
	r.r.Comma = r.opts.Separator
	r.r.FieldsPerRecord = -1

	var cols []schema.Column
	if r.opts.Header {
		rec, err := r.r.Read()
		if err != nil {
			return errkind.Wrap(errkind.Corrupt, err, "reading CSV header")
		}
		for _, name := range rec {
			cols = append(cols, schema.Column{Name: name, LogicalType: schema.String, Nullable: true})
		}
	} else {
		// Defer column count discovery to the first data row.
		rec, err := r.r.Read()
		if err == io.EOF {
			r.sc, _ = schema.Build(nil)
			return nil
		}
		if err != nil {
			return errkind.Wrap(errkind.Corrupt, err, "reading first CSV row")
		}
		for i := range rec {
			cols = append(cols, schema.Column{Name: syntheticName(i), LogicalType: schema.String, Nullable: true})
		}
		r.pending = rec
	}
	sc, err := schema.Build(cols)
	if err != nil {
		return errkind.Wrap(errkind.InvalidConfiguration, err, "building CSV schema")
	}
	r.sc = sc
	return nil
}

func syntheticName(i int) string {
	return "col" + strconv.Itoa(i+1)
}

func (r *CSVReader) Schema() schema.Schema { return r.sc }

func (r *CSVReader) ReadBatches(ctx context.Context, batchSize int) <-chan schema.Batch {
	out := make(chan schema.Batch)
	go func() {
		defer close(out)
		batch := make([]schema.Row, 0, batchSize)
		flush := func() bool {
			if len(batch) == 0 {
				return true
			}
			select {
			case out <- schema.Batch{Schema: r.sc, Rows: batch}:
				batch = make([]schema.Row, 0, batchSize)
				return true
			case <-ctx.Done():
				return false
			}
		}

		if r.pending != nil {
			batch = append(batch, recordToRow(r.pending))
			r.pending = nil
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			rec, err := r.r.Read()
			if err == io.EOF {
				flush()
				return
			}
			if err != nil {
				r.setErr(errkind.Wrap(errkind.Corrupt, err, "reading CSV row"))
				return
			}
			batch = append(batch, recordToRow(rec))
			if len(batch) >= batchSize {
				if !flush() {
					return
				}
			}
		}
	}()
	return out
}

func recordToRow(rec []string) schema.Row {
	row := make(schema.Row, len(rec))
	for i, v := range rec {
		row[i] = v
	}
	return row
}

func (r *CSVReader) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err
}

func (r *CSVReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *CSVReader) Dispose() error {
	return r.src.Close()
}
