package transform

import (
	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// NullFill replaces schema.NullValue in TargetColumn with Value on
// every row that passes through it (spec §4.E "Null-fill"). It never
// changes the schema.
type NullFill struct {
	TargetColumn string
	Value        any

	colIdx int
}

var _ RowTransformer = (*NullFill)(nil)

func (n *NullFill) Initialize(in schema.Schema) (schema.Schema, error) {
	idx := schema.FindColumn(in, n.TargetColumn, false)
	if idx == -1 {
		return schema.Schema{}, errkind.Newf(errkind.InvalidConfiguration, "null-fill: column %q not found", n.TargetColumn)
	}
	n.colIdx = idx
	return in, nil
}

func (n *NullFill) Transform(row schema.Row) (schema.Row, error) {
	if schema.IsNull(row[n.colIdx]) {
		out := row.Clone()
		out[n.colIdx] = n.Value
		return out, nil
	}
	return row, nil
}
