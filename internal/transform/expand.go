package transform

import (
	"fmt"

	"github.com/streamctl/streamctl/internal/schema"
	"github.com/streamctl/streamctl/internal/script"
)

// ExpandFunc produces zero or more output rows from a single input
// row. A nil or empty result drops the row.
type ExpandFunc func(row schema.Row) ([]schema.Row, error)

// Expand is a 1:N transformer built from one or more chained expand
// stages (spec §4.E "Expand"): each stage's output rows are each fed
// through the next stage, so a single input row can multiply out
// across every stage before reaching the next transformer in the
// pipeline. A stage is either a Go callable (Scripts) or a compiled
// script body (Engine/ScriptBodies — "expressions that each return an
// array of row-objects"); both kinds may be mixed, Scripts running
// before ScriptBodies.
type Expand struct {
	Scripts []ExpandFunc

	Engine       *script.Engine
	ScriptBodies []string

	names   []string
	handles []script.Handle
}

var _ ExpandTransformer = (*Expand)(nil)

// NewExpand builds a script-backed Expand: each body is compiled
// through engine and must evaluate to an array of row-objects (spec
// §4.E "Expand").
func NewExpand(engine *script.Engine, bodies []string) *Expand {
	return &Expand{Engine: engine, ScriptBodies: append([]string(nil), bodies...)}
}

func (e *Expand) Initialize(in schema.Schema) (schema.Schema, error) {
	if e.Engine == nil || len(e.ScriptBodies) == 0 {
		return in, nil
	}
	cols := in.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	e.names = names

	e.handles = make([]script.Handle, len(e.ScriptBodies))
	for i, body := range e.ScriptBodies {
		h, err := e.Engine.Compile(fmt.Sprintf("expand%d", i), "return ("+body+");")
		if err != nil {
			return schema.Schema{}, err
		}
		e.handles[i] = h
	}
	return in, nil
}

func (e *Expand) TransformMany(row schema.Row) ([]schema.Row, error) {
	current := []schema.Row{row}
	for _, stage := range e.Scripts {
		var next []schema.Row
		for _, r := range current {
			out, err := stage(r)
			if err != nil {
				return nil, err
			}
			next = append(next, out...)
		}
		current = next
		if len(current) == 0 {
			return nil, nil
		}
	}
	for _, h := range e.handles {
		var next []schema.Row
		for _, r := range current {
			obj := make(map[string]any, len(e.names))
			for i, name := range e.names {
				obj[name] = r[i]
			}
			out, err := e.Engine.InvokeRows(h, obj, e.names)
			if err != nil {
				return nil, err
			}
			next = append(next, out...)
		}
		current = next
		if len(current) == 0 {
			return nil, nil
		}
	}
	return current, nil
}
