package transform

import (
	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
	"github.com/streamctl/streamctl/internal/script"
)

// Script is the spec §4.E "Script" transformer: a 1:1 transform whose
// body is a user-supplied expression evaluated per row by the
// scripting substrate. The row is exposed to the script by column
// name; the script's return value overwrites TargetColumn.
type Script struct {
	Engine       *script.Engine
	Body         string
	TargetColumn string

	handle script.Handle
	names  []string
	colIdx int
}

var _ RowTransformer = (*Script)(nil)

func (s *Script) Initialize(in schema.Schema) (schema.Schema, error) {
	idx := schema.FindColumn(in, s.TargetColumn, false)
	if idx == -1 {
		return schema.Schema{}, errkind.Newf(errkind.InvalidConfiguration, "script transformer: column %q not found", s.TargetColumn)
	}
	s.colIdx = idx

	cols := in.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	s.names = names

	h, err := s.Engine.Compile(s.TargetColumn, s.Body)
	if err != nil {
		return schema.Schema{}, err
	}
	s.handle = h
	return in, nil
}

func (s *Script) Transform(row schema.Row) (schema.Row, error) {
	obj := make(map[string]any, len(s.names))
	for i, name := range s.names {
		obj[name] = row[i]
	}
	result, err := s.Engine.Invoke(s.handle, obj)
	if err != nil {
		return nil, err
	}
	out := row.Clone()
	out[s.colIdx] = result
	return out, nil
}
