package transform

import (
	"strings"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// StaticOverwrite sets TargetColumn to Value on every row, unconditionally
// (spec §4.E "Static overwrite"), regardless of the row's existing value.
type StaticOverwrite struct {
	TargetColumn string
	Value        any

	colIdx int
}

var _ RowTransformer = (*StaticOverwrite)(nil)

func (s *StaticOverwrite) Initialize(in schema.Schema) (schema.Schema, error) {
	idx := schema.FindColumn(in, s.TargetColumn, false)
	if idx == -1 {
		return schema.Schema{}, errkind.Newf(errkind.InvalidConfiguration, "static overwrite: column %q not found", s.TargetColumn)
	}
	s.colIdx = idx
	return in, nil
}

func (s *StaticOverwrite) Transform(row schema.Row) (schema.Row, error) {
	out := row.Clone()
	out[s.colIdx] = s.Value
	return out, nil
}

// ParseStaticSpec parses a "COL:value" or "COL=value" configuration
// string into a column name and raw value. Spec.md leaves it
// unresolved which separator takes priority when a value legitimately
// contains the other character (e.g. "COL:a=b" or "COL=a:b"); this
// implementation preserves that ambiguity rather than resolving it: it
// splits on whichever of ':' or '=' occurs first in the string, left to
// right, exactly as written. A spec string with neither separator is a
// configuration error.
func ParseStaticSpec(spec string) (column string, rawValue string, err error) {
	colonIdx := strings.IndexByte(spec, ':')
	eqIdx := strings.IndexByte(spec, '=')

	sepIdx := -1
	switch {
	case colonIdx == -1 && eqIdx == -1:
		return "", "", errkind.Newf(errkind.InvalidConfiguration, "static overwrite spec %q has no ':' or '=' separator", spec)
	case colonIdx == -1:
		sepIdx = eqIdx
	case eqIdx == -1:
		sepIdx = colonIdx
	case colonIdx < eqIdx:
		sepIdx = colonIdx
	default:
		sepIdx = eqIdx
	}
	return spec[:sepIdx], spec[sepIdx+1:], nil
}
