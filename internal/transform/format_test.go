package transform

import (
	"testing"

	"github.com/streamctl/streamctl/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSchema(t *testing.T, names ...string) schema.Schema {
	t.Helper()
	cols := make([]schema.Column, len(names))
	for i, n := range names {
		cols[i] = schema.Column{Name: n, LogicalType: schema.String, Nullable: true}
	}
	sc, err := schema.Build(cols)
	require.NoError(t, err)
	return sc
}

// TestFormatRawSubstitution exercises Scenario S2: a template
// referencing two source columns resolves into one new derived
// column, and the row's other column is left untouched.
func TestFormatRawSubstitution(t *testing.T) {
	rule, err := NewFormatRule("FULL", "{{FIRST}} {{LAST}}")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"FIRST", "LAST"}, rule.Deps)

	f := &Format{Rules: []FormatRule{rule}}
	in := buildSchema(t, "FIRST", "LAST", "IGNORED")
	out, err := f.Initialize(in)
	require.NoError(t, err)
	require.Equal(t, 4, out.Len(), "FULL is a new virtual column appended to the schema")

	row, err := f.Transform(schema.Row{"John", "Doe", "ignored"})
	require.NoError(t, err)
	assert.Equal(t, schema.Row{"John", "Doe", "ignored", "John Doe"}, row)
}

// TestFormatChainedDependency exercises Scenario S3: C depends on B,
// B depends on A, and the topological sort must evaluate B before C
// so C observes B's just-computed value rather than B's prior one.
func TestFormatChainedDependency(t *testing.T) {
	ruleC, err := NewFormatRule("C", "{{B}} X")
	require.NoError(t, err)
	ruleB, err := NewFormatRule("B", "{{A}} X")
	require.NoError(t, err)

	f := &Format{Rules: []FormatRule{ruleC, ruleB}}
	in := buildSchema(t, "A", "B", "C")
	_, err = f.Initialize(in)
	require.NoError(t, err)

	row, err := f.Transform(schema.Row{"Base", "old", "old"})
	require.NoError(t, err)
	assert.Equal(t, schema.Row{"Base", "Base X", "Base X X"}, row)
}

func TestFormatDependencyCycleFailsInitialize(t *testing.T) {
	ruleA, err := NewFormatRule("A", "{{B}}")
	require.NoError(t, err)
	ruleB, err := NewFormatRule("B", "{{A}}")
	require.NoError(t, err)

	f := &Format{Rules: []FormatRule{ruleA, ruleB}}
	in := buildSchema(t, "A", "B")
	_, err = f.Initialize(in)
	require.Error(t, err, "a cycle among rule targets must fail initialize")
}

func TestFormatUndefinedReferenceIsEmptyString(t *testing.T) {
	rule, err := NewFormatRule("OUT", "[{{MISSING}}]")
	require.NoError(t, err)
	f := &Format{Rules: []FormatRule{rule}}
	in := buildSchema(t, "A")
	_, err = f.Initialize(in)
	require.NoError(t, err)

	row, err := f.Transform(schema.Row{"x"})
	require.NoError(t, err)
	assert.Equal(t, "[]", row[len(row)-1])
}

func TestFormatNumericLayout(t *testing.T) {
	rule, err := NewFormatRule("OUT", "{X:0.00}")
	require.NoError(t, err)
	f := &Format{Rules: []FormatRule{rule}}
	in := buildSchema(t, "X")
	_, err = f.Initialize(in)
	require.NoError(t, err)

	row, err := f.Transform(schema.Row{3.5})
	require.NoError(t, err)
	assert.Equal(t, "3.50", row[len(row)-1])
}

func TestFormatZeroPaddedIntegerLayout(t *testing.T) {
	rule, err := NewFormatRule("OUT", "{N:D6}")
	require.NoError(t, err)
	f := &Format{Rules: []FormatRule{rule}}
	in := buildSchema(t, "N")
	_, err = f.Initialize(in)
	require.NoError(t, err)

	row, err := f.Transform(schema.Row{int64(42)})
	require.NoError(t, err)
	assert.Equal(t, "000042", row[len(row)-1])
}

func TestFormatMalformedLayoutFallsBackToRawValue(t *testing.T) {
	rule, err := NewFormatRule("OUT", "{X:not-a-real-format}")
	require.NoError(t, err)
	f := &Format{Rules: []FormatRule{rule}}
	in := buildSchema(t, "X")
	_, err = f.Initialize(in)
	require.NoError(t, err)

	row, err := f.Transform(schema.Row{"raw-value"})
	require.NoError(t, err)
	assert.Equal(t, "raw-value", row[len(row)-1])
}

func TestParseFormatSpec(t *testing.T) {
	rule, err := ParseFormatSpec("FULL:{{FIRST}} {{LAST}}")
	require.NoError(t, err)
	assert.Equal(t, "FULL", rule.Target)
	assert.ElementsMatch(t, []string{"FIRST", "LAST"}, rule.Deps)

	_, err = ParseFormatSpec("no-separator-here")
	require.Error(t, err)
}
