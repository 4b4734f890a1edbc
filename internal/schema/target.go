package schema

// TargetColumn describes one column of a sink's current state, as
// reported by Writer.inspectTarget (spec §3).
type TargetColumn struct {
	Name              string
	NativeType        string
	InferredLogicalType LogicalType
	Nullable          bool
	IsPrimaryKey      bool
	IsUnique          bool
	MaxLength         int // 0 means unset
	Precision         int
	Scale             int
}

// TargetSchema describes a sink's current state.
type TargetSchema struct {
	Exists      bool
	Columns     []TargetColumn
	RowCount    *int64
	SizeBytes   *int64
	PrimaryKey  []string
}

// FindTargetColumn looks up a target column by exact (ordinal) name
// match, per spec §4.D: "Target-side matching is then exact (ordinal)
// against the normalized names."
func (t TargetSchema) FindTargetColumn(physicalName string) (TargetColumn, bool) {
	for _, c := range t.Columns {
		if c.Name == physicalName {
			return c, true
		}
	}
	return TargetColumn{}, false
}
