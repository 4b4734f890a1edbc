// Package script implements the sandboxed scripting substrate of spec
// §4.F: a thread-local embedded expression engine exposing the current
// row as a name->value object, with memory and time caps.
//
// The teacher's internal/script package (referenced from
// internal/source/logical/provider.go's script.Loader and
// internal/source/mylogical/wire_gen.go's script.ProvideLoader) is not
// present in this retrieval pack; its contract is rebuilt here from
// those call sites against github.com/dop251/goja, the ecosystem's
// standard embeddable ECMAScript VM for Go (named per SPEC_FULL.md's
// Domain Stack table — this is an out-of-pack pick, not one grounded
// in a pack file).
package script

import (
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// MemoryCapBytes is the per-engine-instance memory cap spec §4.F
// requires (50 MB).
const MemoryCapBytes = 50 * 1024 * 1024

// InvocationTimeout is the hard per-invocation time cap spec §4.F
// requires (5 s), after which ScriptTimeout is raised.
const InvocationTimeout = 5 * time.Second

// Engine wraps one goja.Runtime. Engines are not safe for concurrent
// use: spec §4.F requires one engine instance per worker thread,
// created lazily and disposed together at pipeline shutdown.
type Engine struct {
	vm        *goja.Runtime
	compiled  map[string]goja.Callable
	nextID    int
}

// NewEngine constructs a new, strict-mode, sandboxed engine instance.
// Strict mode (spec §4.F): no ambient host, no file/network/process
// access is ever registered into the runtime's global object, so
// scripts have nothing to reach out with.
func NewEngine() *Engine {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	vm.SetMemoryLimit(MemoryCapBytes)
	return &Engine{vm: vm, compiled: make(map[string]goja.Callable)}
}

// Compile wraps body into a uniquely named function
// (`function __nameN(row) { ... }`), compiles it once, and returns a
// handle usable with Invoke. This matches spec §4.F's "each script is
// wrapped into a uniquely named function... once per instance at
// initialize, then invoked by name per row".
func (e *Engine) Compile(label, body string) (Handle, error) {
	e.nextID++
	name := fmt.Sprintf("__%s_%d", sanitizeLabel(label), e.nextID)
	src := fmt.Sprintf("(function %s(row) {\n%s\n})", name, body)
	v, err := e.vm.RunString(src)
	if err != nil {
		return Handle{}, errkind.Wrap(errkind.ScriptError, err, "compiling script "+label)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return Handle{}, errkind.New(errkind.ScriptError, "compiled script "+label+" is not a function")
	}
	e.compiled[name] = fn
	return Handle{name: name}, nil
}

// Handle identifies a compiled script within the Engine that produced
// it. Handles are not portable across Engine instances.
type Handle struct{ name string }

// Invoke calls the compiled function identified by h with row exposed
// as a JS object, enforcing the invocation timeout.
func (e *Engine) Invoke(h Handle, row map[string]any) (any, error) {
	result, err := e.invokeRaw(h, row)
	if err != nil {
		return nil, err
	}
	return exportValue(result), nil
}

// InvokeTruthy calls h like Invoke but reports the result's own
// JavaScript truthiness (via goja's ToBoolean) rather than Invoke's
// scalar marshalling, for script kinds evaluated as a condition (spec
// §4.E "Filter": "false, 0, NaN, empty string, null and undefined are
// falsy; everything else, including empty arrays/objects, is truthy").
func (e *Engine) InvokeTruthy(h Handle, row map[string]any) (bool, error) {
	result, err := e.invokeRaw(h, row)
	if err != nil {
		return false, err
	}
	return result.ToBoolean(), nil
}

// InvokeRows calls h with row exposed as a JS object, same as Invoke,
// but interprets the result as an array of row-objects and projects
// each object's fields onto columns in order (spec §4.E "Expand":
// "expressions that each return an array of row-objects").
func (e *Engine) InvokeRows(h Handle, row map[string]any, columns []string) ([]schema.Row, error) {
	result, err := e.invokeRaw(h, row)
	if err != nil {
		return nil, err
	}
	return exportRows(h, result, columns)
}

// InvokeArray calls h with rows (already-exposed row-objects) passed
// as a single JS array argument, and interprets the result the same
// way InvokeRows does (spec §4.E "Window": "invokes a script ... and
// emits the script's returned array").
func (e *Engine) InvokeArray(h Handle, rows []map[string]any, columns []string) ([]schema.Row, error) {
	result, err := e.invokeRaw(h, rows)
	if err != nil {
		return nil, err
	}
	return exportRows(h, result, columns)
}

// invokeRaw calls the compiled function identified by h with arg
// exposed as its single JS argument, enforcing the invocation timeout.
func (e *Engine) invokeRaw(h Handle, arg any) (goja.Value, error) {
	fn, ok := e.compiled[h.name]
	if !ok {
		return nil, errkind.New(errkind.ScriptError, "unknown compiled script handle")
	}

	e.vm.ClearInterrupt()
	timer := time.AfterFunc(InvocationTimeout, func() {
		e.vm.Interrupt(errTimeout)
	})
	defer timer.Stop()

	result, err := fn(goja.Undefined(), e.vm.ToValue(arg))
	if err != nil {
		if ie, ok := err.(*goja.InterruptedError); ok && ie.Value() == errTimeout {
			return nil, errkind.New(errkind.ScriptTimeout, "script exceeded invocation time cap")
		}
		return nil, errkind.Wrap(errkind.ScriptError, err, "script invocation failed")
	}
	return result, nil
}

var errTimeout = fmt.Errorf("script timeout")

// exportRows interprets v as a JS array of row-objects and projects
// each object's named fields onto columns, in order; a field absent
// from (or null/undefined within) the object maps to schema.NullValue.
// A null/undefined result itself is treated as "no rows" rather than
// an error, so a script may decline to emit.
func exportRows(h Handle, v goja.Value, columns []string) ([]schema.Row, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	arr, ok := v.Export().([]interface{})
	if !ok {
		return nil, errkind.Newf(errkind.ScriptError, "script %s: expected an array of row-objects, got %T", h.name, v.Export())
	}
	out := make([]schema.Row, 0, len(arr))
	for _, el := range arr {
		obj, ok := el.(map[string]interface{})
		if !ok {
			return nil, errkind.Newf(errkind.ScriptError, "script %s: expected a row-object, got %T", h.name, el)
		}
		row := make(schema.Row, len(columns))
		for i, col := range columns {
			if v, present := obj[col]; present && v != nil {
				row[i] = v
			} else {
				row[i] = schema.NullValue
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// exportValue marshals a goja.Value into the marshalling contract of
// spec §4.F: strings/numbers/booleans/null map identity; anything else
// round-trips via string.
func exportValue(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	exported := v.Export()
	switch exported.(type) {
	case string, bool, int64, float64, int, nil:
		return exported
	default:
		return v.String()
	}
}

func sanitizeLabel(label string) string {
	out := make([]byte, 0, len(label))
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "script"
	}
	return string(out)
}

// Pool tracks the Engines it hands out so they are disposed all
// together at shutdown (spec §4.F "Thread locality"). Each NewEngine
// call creates a fresh Engine; a worker calls it once and keeps the
// returned Engine for its own lifetime rather than sharing it.
type Pool struct {
	mu      sync.Mutex
	engines []*Engine
}

// NewEngine allocates and tracks a fresh Engine for a new worker. The
// pool only exists to guarantee every engine it hands out is disposed
// together; it performs no sharing.
func (p *Pool) NewEngine() *Engine {
	e := NewEngine()
	p.mu.Lock()
	p.engines = append(p.engines, e)
	p.mu.Unlock()
	return e
}

// Dispose releases every engine the pool has handed out. goja engines
// have no explicit Close; this exists so the pipeline engine's
// disposal ordering (spec §3 "Ownership") has a concrete hook, and so
// that a future engine swap with explicit resource handles has
// somewhere to plug in.
func (p *Pool) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engines = nil
}
