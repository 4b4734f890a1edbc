package script

import (
	"testing"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAndInvokeReturnsComputedValue(t *testing.T) {
	e := NewEngine()
	h, err := e.Compile("double", "return row.x * 2;")
	require.NoError(t, err)

	out, err := e.Invoke(h, map[string]any{"x": int64(21)})
	require.NoError(t, err)
	assert.EqualValues(t, 42, out)
}

func TestInvokeSeesRowFields(t *testing.T) {
	e := NewEngine()
	h, err := e.Compile("greet", "return 'hello ' + row.name;")
	require.NoError(t, err)

	out, err := e.Invoke(h, map[string]any{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestInvokeNullAndUndefinedBecomeNil(t *testing.T) {
	e := NewEngine()
	h, err := e.Compile("nullish", "return null;")
	require.NoError(t, err)

	out, err := e.Invoke(h, map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestCompileErrorIsScriptError(t *testing.T) {
	e := NewEngine()
	_, err := e.Compile("broken", "this is not valid javascript {{{")
	require.Error(t, err)
	assert.Equal(t, errkind.ScriptError, errkind.Of(err))
}

func TestInvokeUnknownHandleIsScriptError(t *testing.T) {
	e := NewEngine()
	_, err := e.Invoke(Handle{}, map[string]any{})
	require.Error(t, err)
	assert.Equal(t, errkind.ScriptError, errkind.Of(err))
}

func TestInvokeRuntimeExceptionIsScriptError(t *testing.T) {
	e := NewEngine()
	h, err := e.Compile("throws", "throw new Error('boom');")
	require.NoError(t, err)

	_, err = e.Invoke(h, map[string]any{})
	require.Error(t, err)
	assert.Equal(t, errkind.ScriptError, errkind.Of(err))
}

func TestInvokeExceedingTimeoutRaisesScriptTimeout(t *testing.T) {
	e := NewEngine()
	h, err := e.Compile("spin", "while (true) {}")
	require.NoError(t, err)

	_, err = e.Invoke(h, map[string]any{})
	require.Error(t, err)
	assert.Equal(t, errkind.ScriptTimeout, errkind.Of(err))
}

func TestPoolDisposeClearsTrackedEngines(t *testing.T) {
	p := &Pool{}
	e1 := p.NewEngine()
	e2 := p.NewEngine()
	require.NotNil(t, e1)
	require.NotNil(t, e2)
	assert.Len(t, p.engines, 2)

	p.Dispose()
	assert.Empty(t, p.engines)
}
