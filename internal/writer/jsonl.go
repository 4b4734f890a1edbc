package writer

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// JSONLWriter streams batches out as one JSON object per line, with
// object property order following the initialized schema's column
// order (spec §6).
type JSONLWriter struct {
	dst io.WriteCloser
	buf *bufio.Writer

	names  []string
	schema schema.Schema
}

var _ Writer = (*JSONLWriter)(nil)

// NewJSONLWriter constructs a JSONLWriter over dst, closed by Dispose.
func NewJSONLWriter(dst io.WriteCloser) *JSONLWriter {
	return &JSONLWriter{dst: dst}
}

func (w *JSONLWriter) InspectTarget(ctx context.Context) (schema.TargetSchema, bool, error) {
	return schema.TargetSchema{}, false, nil
}

func (w *JSONLWriter) Initialize(ctx context.Context, in schema.Schema, compat schema.CompatibilityReport) (schema.Schema, error) {
	w.schema = in
	w.buf = bufio.NewWriter(w.dst)
	names := make([]string, in.Len())
	for i := 0; i < in.Len(); i++ {
		names[i] = in.At(i).Name
	}
	w.names = names
	return in, nil
}

// WriteBatch marshals each field individually rather than through a
// map, because encoding/json always emits map keys in sorted order —
// a plain map[string]any would silently reorder columns away from
// spec §6's "property order follows schema order" requirement.
func (w *JSONLWriter) WriteBatch(ctx context.Context, batch schema.Batch) error {
	for _, row := range batch.Rows {
		if err := w.buf.WriteByte('{'); err != nil {
			return errkind.Wrap(errkind.Unsupported, err, "writing JSONL row")
		}
		for i, name := range w.names {
			if i > 0 {
				if _, err := w.buf.WriteString(","); err != nil {
					return errkind.Wrap(errkind.Unsupported, err, "writing JSONL row")
				}
			}
			keyBytes, err := json.Marshal(name)
			if err != nil {
				return errkind.Wrap(errkind.Corrupt, err, "marshaling JSONL key")
			}
			var valBytes []byte
			if schema.IsNull(row[i]) {
				valBytes = []byte("null")
			} else {
				valBytes, err = json.Marshal(row[i])
				if err != nil {
					return errkind.Wrap(errkind.Corrupt, err, "marshaling JSONL value")
				}
			}
			if _, err := w.buf.Write(keyBytes); err != nil {
				return errkind.Wrap(errkind.Unsupported, err, "writing JSONL row")
			}
			if err := w.buf.WriteByte(':'); err != nil {
				return errkind.Wrap(errkind.Unsupported, err, "writing JSONL row")
			}
			if _, err := w.buf.Write(valBytes); err != nil {
				return errkind.Wrap(errkind.Unsupported, err, "writing JSONL row")
			}
		}
		if _, err := w.buf.WriteString("}\n"); err != nil {
			return errkind.Wrap(errkind.Unsupported, err, "writing JSONL row")
		}
	}
	return nil
}

func (w *JSONLWriter) Complete(ctx context.Context) error {
	return w.buf.Flush()
}

func (w *JSONLWriter) Dispose() error {
	return w.dst.Close()
}
