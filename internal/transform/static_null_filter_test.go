package transform

import (
	"testing"

	"github.com/streamctl/streamctl/internal/schema"
	"github.com/streamctl/streamctl/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticOverwriteAlwaysSetsValue(t *testing.T) {
	s := &StaticOverwrite{TargetColumn: "STATUS", Value: "active"}
	_, err := s.Initialize(buildSchema(t, "ID", "STATUS"))
	require.NoError(t, err)

	row, err := s.Transform(schema.Row{"1", "whatever was there before"})
	require.NoError(t, err)
	assert.Equal(t, schema.Row{"1", "active"}, row)
}

func TestStaticOverwriteUnknownColumnFailsInitialize(t *testing.T) {
	s := &StaticOverwrite{TargetColumn: "MISSING", Value: "x"}
	_, err := s.Initialize(buildSchema(t, "ID"))
	require.Error(t, err)
}

func TestParseStaticSpecSplitsOnFirstSeparator(t *testing.T) {
	col, val, err := ParseStaticSpec("STATUS:active")
	require.NoError(t, err)
	assert.Equal(t, "STATUS", col)
	assert.Equal(t, "active", val)

	col, val, err = ParseStaticSpec("STATUS=active")
	require.NoError(t, err)
	assert.Equal(t, "STATUS", col)
	assert.Equal(t, "active", val)

	// Neither separator is special-cased beyond "whichever comes
	// first" — a value containing the other separator is preserved
	// verbatim in the raw value half.
	col, val, err = ParseStaticSpec("COL:a=b")
	require.NoError(t, err)
	assert.Equal(t, "COL", col)
	assert.Equal(t, "a=b", val)

	_, _, err = ParseStaticSpec("no-separator")
	require.Error(t, err)
}

func TestNullFillReplacesOnlyNulls(t *testing.T) {
	n := &NullFill{TargetColumn: "QTY", Value: int64(0)}
	_, err := n.Initialize(buildSchema(t, "QTY"))
	require.NoError(t, err)

	row, err := n.Transform(schema.Row{schema.NullValue})
	require.NoError(t, err)
	assert.Equal(t, schema.Row{int64(0)}, row)

	row, err = n.Transform(schema.Row{int64(5)})
	require.NoError(t, err)
	assert.Equal(t, schema.Row{int64(5)}, row, "a non-null value passes through untouched")
}

func TestFilterDropsOnFirstFalsyPredicate(t *testing.T) {
	var secondCalled bool
	f := &Filter{Predicates: []Predicate{
		func(row schema.Row) (bool, error) { return false, nil },
		func(row schema.Row) (bool, error) { secondCalled = true; return true, nil },
	}}
	_, err := f.Initialize(buildSchema(t, "X"))
	require.NoError(t, err)

	out, err := f.Transform(schema.Row{"v"})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.False(t, secondCalled, "short-circuits on the first falsy predicate")
}

func TestFilterPassesWhenAllPredicatesTrue(t *testing.T) {
	f := &Filter{Predicates: []Predicate{
		func(row schema.Row) (bool, error) { return true, nil },
		func(row schema.Row) (bool, error) { return true, nil },
	}}
	_, err := f.Initialize(buildSchema(t, "X"))
	require.NoError(t, err)

	out, err := f.Transform(schema.Row{"v"})
	require.NoError(t, err)
	assert.Equal(t, schema.Row{"v"}, out)
}

func TestChainDropsRowWhenAnyStageYieldsNothing(t *testing.T) {
	dropper := &Filter{Predicates: []Predicate{
		func(row schema.Row) (bool, error) { return false, nil },
	}}
	c := NewChain(dropper)
	_, err := c.Initialize(buildSchema(t, "X"))
	require.NoError(t, err)

	out, err := c.Process(schema.Row{"v"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

// TestFilterScriptBackedUsesJSFalsyRule exercises the §4.F scripting
// substrate wired into Filter: the expression's own JavaScript
// truthiness decides, so a non-zero number passes and 0 is dropped.
func TestFilterScriptBackedUsesJSFalsyRule(t *testing.T) {
	f := NewFilter(script.NewEngine(), []string{"row.n"})
	_, err := f.Initialize(buildSchema(t, "n"))
	require.NoError(t, err)

	out, err := f.Transform(schema.Row{int64(5)})
	require.NoError(t, err)
	assert.Equal(t, schema.Row{int64(5)}, out)

	out, err = f.Transform(schema.Row{int64(0)})
	require.NoError(t, err)
	assert.Nil(t, out, "0 is falsy")
}

func TestChainComposesMultipleStagesInOrder(t *testing.T) {
	upper := &StaticOverwrite{TargetColumn: "X", Value: "FIXED"}
	fill := &NullFill{TargetColumn: "Y", Value: "filled"}
	c := NewChain(upper, fill)

	out, err := c.Initialize(buildSchema(t, "X", "Y"))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())

	rows, err := c.Process(schema.Row{"orig", schema.NullValue})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, schema.Row{"FIXED", "filled"}, rows[0])
}
