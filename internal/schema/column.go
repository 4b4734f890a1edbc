// Package schema defines the row/column/batch data model shared by
// every reader, writer and transformer in the pipeline (spec §3, §4.A).
package schema

import "strings"

// LogicalType is the pipeline's provider-neutral type system. Readers
// map native types into a LogicalType on open; writers map a
// LogicalType to a dialect-specific native type on create.
type LogicalType int

const (
	Unknown LogicalType = iota
	Bool
	Int32
	Int64
	Float32
	Float64
	Decimal
	String
	Bytes
	Date
	Timestamp
	TimestampTz
	Guid
)

func (t LogicalType) String() string {
	switch t {
	case Bool:
		return "Bool"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Decimal:
		return "Decimal"
	case String:
		return "String"
	case Bytes:
		return "Bytes"
	case Date:
		return "Date"
	case Timestamp:
		return "Timestamp"
	case TimestampTz:
		return "TimestampTz"
	case Guid:
		return "Guid"
	default:
		return "Unknown"
	}
}

// numericRank orders the numeric logical types so that upcasts (§4.A:
// "numeric upcasts ... are lossless and allowed") can be detected as
// rank(source) <= rank(target).
var numericRank = map[LogicalType]int{
	Bool:    0,
	Int32:   1,
	Int64:   2,
	Float32: 3,
	Float64: 4,
	Decimal: 5,
}

// IsNumericUpcast reports whether converting a value of logical type
// from into logical type to is a lossless widening conversion.
func IsNumericUpcast(from, to LogicalType) bool {
	rf, okF := numericRank[from]
	rt, okT := numericRank[to]
	if !okF || !okT {
		return false
	}
	return rf <= rt
}

// Column is an immutable descriptor of one position in a schema.
type Column struct {
	Name          string
	LogicalType   LogicalType
	Nullable      bool
	CaseSensitive bool
	Virtual       bool
}

// Schema is an ordered, immutable list of Columns. Once built it must
// not be mutated; transformers and readers produce new Schema values
// rather than editing in place (spec §3 "Lifecycle").
type Schema struct {
	columns []Column
	index   map[string]int // identity-normalized name -> position
}

// Build constructs a Schema from an ordered column list, validating the
// identity-rule uniqueness invariant from spec §3: "names within one
// schema are unique under the producing system's identity rule
// (case-sensitive if any column is case-sensitive, else
// case-insensitive ASCII)".
func Build(columns []Column) (Schema, error) {
	caseSensitive := false
	for _, c := range columns {
		if c.CaseSensitive {
			caseSensitive = true
			break
		}
	}
	index := make(map[string]int, len(columns))
	out := make([]Column, len(columns))
	copy(out, columns)
	for i, c := range out {
		key := identityKey(c.Name, caseSensitive)
		if _, dup := index[key]; dup {
			return Schema{}, duplicateColumnError(c.Name)
		}
		index[key] = i
	}
	return Schema{columns: out, index: index}, nil
}

// Columns returns the schema's column list. The returned slice must
// not be mutated by the caller.
func (s Schema) Columns() []Column { return s.columns }

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.columns) }

// At returns the column at position i.
func (s Schema) At(i int) Column { return s.columns[i] }

func identityKey(name string, caseSensitive bool) string {
	if caseSensitive {
		return name
	}
	return strings.ToUpper(name)
}

// FindColumn resolves name to its position in the schema using the
// requested case sensitivity. It returns -1 if no column matches.
func FindColumn(s Schema, name string, caseSensitive bool) int {
	key := identityKey(name, caseSensitive)
	if idx, ok := s.index[key]; ok && identityKey(s.columns[idx].Name, caseSensitive) == key {
		return idx
	}
	// index was built with the schema's own identity rule, which may
	// differ from the caller's request (e.g. a caller doing a
	// case-insensitive lookup against a schema that has no
	// case-sensitive columns, vs a case-sensitive one). Fall back to a
	// linear scan honoring the caller's requested rule exactly.
	for i, c := range s.columns {
		if caseSensitive {
			if c.Name == name {
				return i
			}
		} else if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

type duplicateColumnErr struct{ name string }

func (e *duplicateColumnErr) Error() string { return "duplicate column name: " + e.name }

func duplicateColumnError(name string) error { return &duplicateColumnErr{name: name} }
