package transform

import (
	"fmt"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
	"github.com/streamctl/streamctl/internal/script"
)

// Aggregate reduces a buffered window of rows into zero or more output
// rows (spec §4.E: Window is "N:1 or N:M").
type Aggregate func(rows []schema.Row) ([]schema.Row, error)

// Window is the spec §4.E N:1/N:M transformer: it buffers input rows
// and emits an aggregation of those rows each time a trigger fires,
// either a row count (Size) or a change in the value of KeyColumns
// relative to the previous row. Any rows still buffered when the
// stream ends are emitted by Flush. Size == 0 disables the count
// trigger; an empty KeyColumns disables the key-change trigger. With
// neither trigger configured, every row stays buffered until Flush.
// The aggregation is either a Go
// callable (Combine) or a compiled script body (Engine/ScriptBody —
// spec §4.E "Window invokes a script ... with the buffered rows ...
// and emits the script's returned array"); Combine takes precedence
// when both are set.
type Window struct {
	Size       int
	KeyColumns []string
	Combine    Aggregate

	Engine     *script.Engine
	ScriptBody string

	keyIdx  []int
	buffer  []schema.Row
	lastKey string
	hasKey  bool

	names  []string
	handle script.Handle
}

var _ ExpandTransformer = (*Window)(nil)
var _ Flusher = (*Window)(nil)

// NewWindow builds a script-backed Window: scriptBody is compiled
// through engine and invoked with the buffered rows exposed as a
// single array argument named "rows", and must evaluate to an array of
// row-objects (spec §4.E "Window").
func NewWindow(engine *script.Engine, scriptBody string, size int, keyColumns []string) *Window {
	return &Window{
		Size:       size,
		KeyColumns: append([]string(nil), keyColumns...),
		Engine:     engine,
		ScriptBody: scriptBody,
	}
}

func (w *Window) Initialize(in schema.Schema) (schema.Schema, error) {
	w.keyIdx = w.keyIdx[:0]
	for _, name := range w.KeyColumns {
		idx := schema.FindColumn(in, name, false)
		if idx == -1 {
			return schema.Schema{}, errkind.Newf(errkind.InvalidConfiguration, "window: key column %q not found", name)
		}
		w.keyIdx = append(w.keyIdx, idx)
	}
	w.buffer = nil
	w.hasKey = false

	if w.Combine == nil && w.Engine != nil && w.ScriptBody != "" {
		cols := in.Columns()
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name
		}
		w.names = names

		h, err := w.Engine.Compile("window", "var rows = row;\nreturn ("+w.ScriptBody+");")
		if err != nil {
			return schema.Schema{}, err
		}
		w.handle = h
	}
	return in, nil
}

func (w *Window) keyOf(row schema.Row) string {
	key := ""
	for _, idx := range w.keyIdx {
		key += fmt.Sprintf("\x1f%v", row[idx])
	}
	return key
}

// TransformMany buffers row and, if a trigger condition is met,
// flushes and returns the aggregation's output rows (zero or more).
func (w *Window) TransformMany(row schema.Row) ([]schema.Row, error) {
	var emitted []schema.Row

	if len(w.keyIdx) > 0 {
		key := w.keyOf(row)
		if w.hasKey && key != w.lastKey && len(w.buffer) > 0 {
			out, err := w.flushBuffer()
			if err != nil {
				return nil, err
			}
			emitted = append(emitted, out...)
		}
		w.lastKey = key
		w.hasKey = true
	}

	w.buffer = append(w.buffer, row)

	if w.Size > 0 && len(w.buffer) >= w.Size {
		out, err := w.flushBuffer()
		if err != nil {
			return nil, err
		}
		emitted = append(emitted, out...)
	}
	return emitted, nil
}

func (w *Window) flushBuffer() ([]schema.Row, error) {
	if len(w.buffer) == 0 {
		return nil, nil
	}
	rows := w.buffer
	w.buffer = nil

	if w.Combine != nil {
		return w.Combine(rows)
	}

	objs := make([]map[string]any, len(rows))
	for i, r := range rows {
		obj := make(map[string]any, len(w.names))
		for j, name := range w.names {
			obj[name] = r[j]
		}
		objs[i] = obj
	}
	return w.Engine.InvokeArray(w.handle, objs, w.names)
}

// Flush emits any rows still buffered when the stream ends (spec
// §4.E: "flush remaining at end-of-stream").
func (w *Window) Flush() ([]schema.Row, error) {
	return w.flushBuffer()
}
