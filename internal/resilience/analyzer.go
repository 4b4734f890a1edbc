package resilience

import (
	"context"
	"fmt"
	"strings"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// RowWriter is the narrow slice of writer.Writer the analyzer needs:
// the ability to attempt a write of a single-row batch so the
// bisection can isolate the offending row without depending on the
// full Writer contract (and without an import cycle on package
// writer).
type RowWriter interface {
	WriteBatch(ctx context.Context, batch schema.Batch) error
}

// Diagnose runs a failed batch row-by-row (bisection would only save
// round-trips against a real sink; a single-process in-memory search
// is cheap enough to just walk linearly) to find the first offending
// row and column, per spec §4.H. cause is the original error from the
// whole-batch write attempt; it is always preserved, never swallowed.
func Diagnose(ctx context.Context, w RowWriter, batch schema.Batch, cause error) error {
	for i, row := range batch.Rows {
		single := schema.Batch{Schema: batch.Schema, Rows: []schema.Row{row}}
		if err := w.WriteBatch(ctx, single); err != nil {
			col := firstOffendingColumn(batch.Schema, row, err)
			diag := fmt.Sprintf(
				"Issue detected at Row %d, Column '%s', Value: '%v', Reason: %v",
				i, col.name, col.value, err,
			)
			return errkind.Wrap(errkind.Of(cause), cause, diag)
		}
	}
	// No single row reproduced the failure in isolation (e.g. a
	// cross-row constraint, or the sink is not idempotent under
	// replay); surface the original error undiagnosed.
	return cause
}

type offendingColumn struct {
	name  string
	value any
}

// firstOffendingColumn makes a best-effort guess at which cell within
// the offending row the error concerns, by looking for a column name
// mentioned in the error text; it falls back to the first column.
func firstOffendingColumn(sc schema.Schema, row schema.Row, err error) offendingColumn {
	msg := err.Error()
	for i, col := range sc.Columns() {
		if col.Name != "" && strings.Contains(msg, col.Name) {
			return offendingColumn{name: col.Name, value: row.Get(i)}
		}
	}
	if len(sc.Columns()) > 0 {
		return offendingColumn{name: sc.Columns()[0].Name, value: row.Get(0)}
	}
	return offendingColumn{name: "?", value: nil}
}
