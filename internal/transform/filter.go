package transform

import (
	"fmt"

	"github.com/streamctl/streamctl/internal/schema"
	"github.com/streamctl/streamctl/internal/script"
)

// Predicate evaluates a row and reports whether it should continue
// through the chain.
type Predicate func(row schema.Row) (bool, error)

// Filter drops rows for which any Predicates entry, or any compiled
// Exprs entry, evaluates falsy, evaluated in order with short-circuit
// on the first falsy result (spec §4.E "Filter": "boolean expressions
// in the scripting language (§4.F)"). It never alters the schema.
type Filter struct {
	Predicates []Predicate

	// Engine and Exprs drive script-backed predicates: each expr is a
	// boolean expression (not a full statement) evaluated per row
	// through Engine, falsy per JavaScript's own rule (false, 0, NaN,
	// "", null, undefined).
	Engine *script.Engine
	Exprs  []string

	names   []string
	handles []script.Handle
}

var _ RowTransformer = (*Filter)(nil)

// NewFilter builds a script-backed Filter: each expr is compiled
// through engine and evaluated for its own JavaScript truthiness per
// row (spec §4.E "Filter").
func NewFilter(engine *script.Engine, exprs []string) *Filter {
	return &Filter{Engine: engine, Exprs: append([]string(nil), exprs...)}
}

func (f *Filter) Initialize(in schema.Schema) (schema.Schema, error) {
	if f.Engine == nil || len(f.Exprs) == 0 {
		return in, nil
	}
	cols := in.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	f.names = names

	f.handles = make([]script.Handle, len(f.Exprs))
	for i, expr := range f.Exprs {
		h, err := f.Engine.Compile(fmt.Sprintf("filter%d", i), "return ("+expr+");")
		if err != nil {
			return schema.Schema{}, err
		}
		f.handles[i] = h
	}
	return in, nil
}

func (f *Filter) Transform(row schema.Row) (schema.Row, error) {
	for _, p := range f.Predicates {
		ok, err := p(row)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}
	if len(f.handles) > 0 {
		obj := make(map[string]any, len(f.names))
		for i, name := range f.names {
			obj[name] = row[i]
		}
		for _, h := range f.handles {
			ok, err := f.Engine.InvokeTruthy(h, obj)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
		}
	}
	return row, nil
}
