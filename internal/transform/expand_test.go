package transform

import (
	"strings"
	"testing"

	"github.com/streamctl/streamctl/internal/schema"
	"github.com/streamctl/streamctl/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExpandSingleScript exercises Scenario S4: a 1:N expand splitting
// a delimited column into multiple rows.
func TestExpandSingleScript(t *testing.T) {
	splitTags := func(row schema.Row) ([]schema.Row, error) {
		tags := row[0].(string)
		var out []schema.Row
		for _, tag := range strings.Split(tags, ",") {
			out = append(out, schema.Row{tag})
		}
		return out, nil
	}
	e := &Expand{Scripts: []ExpandFunc{splitTags}}
	_, err := e.Initialize(buildSchema(t, "TAGS"))
	require.NoError(t, err)

	out, err := e.TransformMany(schema.Row{"a,b,c"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, schema.Row{"a"}, out[0])
	assert.Equal(t, schema.Row{"b"}, out[1])
	assert.Equal(t, schema.Row{"c"}, out[2])
}

// TestExpandScriptBackedSplitsOnScriptResult exercises the §4.F
// scripting substrate wired into Expand: the compiled body returns an
// array of row-objects derived from the input row's own value.
func TestExpandScriptBackedSplitsOnScriptResult(t *testing.T) {
	e := NewExpand(script.NewEngine(), []string{
		`row.tags.split(",").map(function(tag) { return {tags: tag}; })`,
	})
	_, err := e.Initialize(buildSchema(t, "tags"))
	require.NoError(t, err)

	out, err := e.TransformMany(schema.Row{"x,y"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, schema.Row{"x"}, out[0])
	assert.Equal(t, schema.Row{"y"}, out[1])
}

func TestExpandChainsThroughEachScript(t *testing.T) {
	double := func(row schema.Row) ([]schema.Row, error) {
		return []schema.Row{row, row}, nil
	}
	triple := func(row schema.Row) ([]schema.Row, error) {
		return []schema.Row{row, row, row}, nil
	}
	e := &Expand{Scripts: []ExpandFunc{double, triple}}
	_, err := e.Initialize(buildSchema(t, "X"))
	require.NoError(t, err)

	out, err := e.TransformMany(schema.Row{"v"})
	require.NoError(t, err)
	assert.Len(t, out, 6, "2x then 3x fan-out multiplies across stages")
}

func TestExpandEmptyResultDropsRow(t *testing.T) {
	dropAll := func(row schema.Row) ([]schema.Row, error) { return nil, nil }
	e := &Expand{Scripts: []ExpandFunc{dropAll}}
	_, err := e.Initialize(buildSchema(t, "X"))
	require.NoError(t, err)

	out, err := e.TransformMany(schema.Row{"v"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

// TestWindowByCount exercises Scenario S5 exactly: a size-2 window over
// rows [1],[2],[3] with Combine doubling each row's value must emit
// two rows ([2],[4]) on the size-2 flush and a single row ([6]) on the
// trailing Flush.
func TestWindowByCount(t *testing.T) {
	var combined [][]schema.Row
	w := &Window{
		Size: 2,
		Combine: func(rows []schema.Row) ([]schema.Row, error) {
			cp := append([]schema.Row(nil), rows...)
			combined = append(combined, cp)
			out := make([]schema.Row, len(rows))
			for i, r := range rows {
				out[i] = schema.Row{r[0].(int64) * 2}
			}
			return out, nil
		},
	}
	_, err := w.Initialize(buildSchema(t, "X"))
	require.NoError(t, err)

	out, err := w.TransformMany(schema.Row{int64(1)})
	require.NoError(t, err)
	assert.Empty(t, out, "first row of the window must not emit yet")

	out, err = w.TransformMany(schema.Row{int64(2)})
	require.NoError(t, err)
	require.Len(t, out, 2, "the size-2 flush must emit two rows, one per buffered row")
	assert.Equal(t, schema.Row{int64(2)}, out[0])
	assert.Equal(t, schema.Row{int64(4)}, out[1])

	out, err = w.TransformMany(schema.Row{int64(3)})
	require.NoError(t, err)
	assert.Empty(t, out, "a fresh window starts accumulating again")

	flushed, err := w.Flush()
	require.NoError(t, err)
	require.Len(t, flushed, 1, "flush emits the partially-filled trailing window")
	assert.Equal(t, schema.Row{int64(6)}, flushed[0])

	require.Len(t, combined, 2)
}

// TestWindowScriptBackedDoublesPerRow drives the same S5 shape through
// a compiled script body instead of a Go Combine, exercising the §4.F
// substrate wired into Window via NewWindow/InvokeArray.
func TestWindowScriptBackedDoublesPerRow(t *testing.T) {
	w := NewWindow(script.NewEngine(), `rows.map(function(r) { return {v: r.v * 2}; })`, 2, nil)
	_, err := w.Initialize(buildSchema(t, "v"))
	require.NoError(t, err)

	out, err := w.TransformMany(schema.Row{int64(1)})
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = w.TransformMany(schema.Row{int64(2)})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, schema.Row{int64(2)}, out[0])
	assert.Equal(t, schema.Row{int64(4)}, out[1])

	out, err = w.TransformMany(schema.Row{int64(3)})
	require.NoError(t, err)
	assert.Empty(t, out)

	flushed, err := w.Flush()
	require.NoError(t, err)
	require.Len(t, flushed, 1)
	assert.Equal(t, schema.Row{int64(6)}, flushed[0])
}

func TestWindowByKeyChange(t *testing.T) {
	var sizes []int
	w := &Window{
		KeyColumns: []string{"K"},
		Combine: func(rows []schema.Row) ([]schema.Row, error) {
			sizes = append(sizes, len(rows))
			return []schema.Row{rows[0]}, nil
		},
	}
	_, err := w.Initialize(buildSchema(t, "K", "V"))
	require.NoError(t, err)

	var emittedCount int
	for _, row := range []schema.Row{
		{"k1", "a"}, {"k1", "b"}, {"k2", "c"}, {"k2", "d"}, {"k2", "e"},
	} {
		out, err := w.TransformMany(row)
		require.NoError(t, err)
		emittedCount += len(out)
	}
	flushed, err := w.Flush()
	require.NoError(t, err)
	emittedCount += len(flushed)

	assert.Equal(t, 2, emittedCount, "one aggregate per distinct key run, including the trailing flush")
	assert.Equal(t, []int{2, 3}, sizes)
}

func TestWindowRequiresNoTriggerStillBuffersUntilFlush(t *testing.T) {
	w := &Window{
		Combine: func(rows []schema.Row) ([]schema.Row, error) {
			return []schema.Row{{len(rows)}}, nil
		},
	}
	_, err := w.Initialize(buildSchema(t, "X"))
	require.NoError(t, err)

	out, err := w.TransformMany(schema.Row{"a"})
	require.NoError(t, err)
	assert.Empty(t, out)

	flushed, err := w.Flush()
	require.NoError(t, err)
	require.Len(t, flushed, 1)
	assert.Equal(t, schema.Row{1}, flushed[0])
}
