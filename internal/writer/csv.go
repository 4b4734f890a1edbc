package writer

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// CSVWriter streams batches out as comma (or other) separated values,
// writing a header row from the initialized schema's column names
// (spec §6, mirroring CSVReader's own shape in internal/reader/csv.go).
type CSVWriter struct {
	dst       io.WriteCloser
	separator rune
	header    bool

	w      *csv.Writer
	schema schema.Schema
}

var _ Writer = (*CSVWriter)(nil)

// NewCSVWriter constructs a CSVWriter over dst, closed by Dispose.
func NewCSVWriter(dst io.WriteCloser, separator rune, header bool) *CSVWriter {
	if separator == 0 {
		separator = ','
	}
	return &CSVWriter{dst: dst, separator: separator, header: header}
}

// InspectTarget always reports a non-existent target: file sinks have
// no prior schema to reconcile against (spec §4.C's Strategy concept
// applies to SQL targets only; file writers are always a fresh write).
func (w *CSVWriter) InspectTarget(ctx context.Context) (schema.TargetSchema, bool, error) {
	return schema.TargetSchema{}, false, nil
}

func (w *CSVWriter) Initialize(ctx context.Context, in schema.Schema, compat schema.CompatibilityReport) (schema.Schema, error) {
	w.schema = in
	w.w = csv.NewWriter(w.dst)
	w.w.Comma = w.separator
	if w.header {
		names := make([]string, in.Len())
		for i := 0; i < in.Len(); i++ {
			names[i] = in.At(i).Name
		}
		if err := w.w.Write(names); err != nil {
			return schema.Schema{}, errkind.Wrap(errkind.Unsupported, err, "writing CSV header")
		}
	}
	return in, nil
}

func (w *CSVWriter) WriteBatch(ctx context.Context, batch schema.Batch) error {
	rec := make([]string, w.schema.Len())
	for _, row := range batch.Rows {
		for i := range rec {
			if schema.IsNull(row[i]) {
				rec[i] = ""
			} else {
				rec[i] = schema.FormatInvariant(row[i])
			}
		}
		if err := w.w.Write(rec); err != nil {
			return errkind.Wrap(errkind.Unsupported, err, "writing CSV row")
		}
	}
	return nil
}

func (w *CSVWriter) Complete(ctx context.Context) error {
	w.w.Flush()
	return w.w.Error()
}

func (w *CSVWriter) Dispose() error {
	return w.dst.Close()
}
