// Package transform implements the transformer algebra of spec §4.E:
// 1:1, 1:N (expand), N:1 (window), and stateful flush, composed into an
// ordered pipeline.
package transform

import (
	"github.com/streamctl/streamctl/internal/schema"
)

// Transformer is the capability set every transformer may implement.
// A transformer must implement at least one of Transform or
// TransformMany; Flush is optional (stateful transformers only).
type Transformer interface {
	// Initialize runs once, before any row flows through. It may add
	// virtual columns or drop columns; the returned schema drives the
	// next stage.
	Initialize(in schema.Schema) (schema.Schema, error)
}

// RowTransformer is a 1:1 transformer. A nil returned row drops the
// input row.
type RowTransformer interface {
	Transformer
	Transform(row schema.Row) (schema.Row, error)
}

// ExpandTransformer is a 1:N transformer; it supersedes RowTransformer
// when both are implemented by the same value (spec §4.E).
type ExpandTransformer interface {
	Transformer
	TransformMany(row schema.Row) ([]schema.Row, error)
}

// Flusher is implemented by stateful transformers (e.g. Window) that
// must emit buffered output at end-of-stream.
type Flusher interface {
	Transformer
	Flush() ([]schema.Row, error)
}

// Apply threads row through a single transformer, preferring
// TransformMany over Transform when both are available, per spec
// §4.E's "TransformMany supersedes Transform" rule.
func Apply(t Transformer, row schema.Row) ([]schema.Row, error) {
	if et, ok := t.(ExpandTransformer); ok {
		return et.TransformMany(row)
	}
	if rt, ok := t.(RowTransformer); ok {
		out, err := rt.Transform(row)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, nil
		}
		return []schema.Row{out}, nil
	}
	// A transformer implementing neither yields no rows for the input,
	// so the chain drops the row; such a stage emits output only
	// through Flush.
	return nil, nil
}

// Chain is an ordered composition of transformers (spec §4.E
// "Composition"). Each incoming row is threaded through in order; if
// any stage returns no rows, the row is dropped and subsequent stages
// are not invoked for it.
type Chain struct {
	stages []Transformer
}

// NewChain builds a Chain from an ordered transformer list.
func NewChain(stages ...Transformer) *Chain {
	return &Chain{stages: stages}
}

// Initialize runs Initialize on every stage in order, threading each
// stage's output schema into the next stage's input.
func (c *Chain) Initialize(in schema.Schema) (schema.Schema, error) {
	cur := in
	for _, s := range c.stages {
		out, err := s.Initialize(cur)
		if err != nil {
			return schema.Schema{}, err
		}
		cur = out
	}
	return cur, nil
}

// Process threads one row through every stage, expanding 1:N at each
// stage and dropping the row entirely once any stage yields nothing.
func (c *Chain) Process(row schema.Row) ([]schema.Row, error) {
	return c.processFrom(0, row)
}

// processFrom threads row through stages[from:], used both for the
// normal per-row path (from == 0) and for threading a flush's output
// rows through the downstream stages only (spec §4.E: "the output of
// flush at position i is threaded through positions i+1...n").
func (c *Chain) processFrom(from int, row schema.Row) ([]schema.Row, error) {
	current := []schema.Row{row}
	for i := from; i < len(c.stages); i++ {
		var next []schema.Row
		for _, r := range current {
			out, err := Apply(c.stages[i], r)
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

// FlushAll executes every stage's Flush (if it has one) in pipeline
// order, threading each flush's output rows through the remaining
// downstream stages, per spec §4.E's end-of-stream rule. Flush outputs
// are not re-fed into the flushing stage's own flush or per-row steps.
func (c *Chain) FlushAll() ([]schema.Row, error) {
	var allOut []schema.Row
	for i, s := range c.stages {
		f, ok := s.(Flusher)
		if !ok {
			continue
		}
		flushed, err := f.Flush()
		if err != nil {
			return nil, err
		}
		for _, row := range flushed {
			downstream, err := c.processFrom(i+1, row)
			if err != nil {
				return nil, err
			}
			allOut = append(allOut, downstream...)
		}
	}
	return allOut, nil
}
