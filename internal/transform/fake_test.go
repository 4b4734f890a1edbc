package transform

import (
	"testing"

	"github.com/streamctl/streamctl/internal/schema"
	"github.com/streamctl/streamctl/internal/transform/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeColumnIsDeterministicPerInputValue(t *testing.T) {
	reg, ok := fake.NewRegistry(fake.Email)
	require.True(t, ok)
	f := &FakeColumn{SourceColumn: "EMAIL", Registry: reg}
	_, err := f.Initialize(buildSchema(t, "EMAIL"))
	require.NoError(t, err)

	row1, err := f.Transform(schema.Row{"alice@example.com"})
	require.NoError(t, err)
	row2, err := f.Transform(schema.Row{"alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, row1[0], row2[0], "the same source value must always anonymize to the same output")

	row3, err := f.Transform(schema.Row{"bob@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, row1[0], row3[0], "distinct source values should (almost always) anonymize differently")
}

func TestFakeColumnPassesThroughNull(t *testing.T) {
	reg, ok := fake.NewRegistry(fake.City)
	require.True(t, ok)
	f := &FakeColumn{SourceColumn: "CITY", Registry: reg}
	_, err := f.Initialize(buildSchema(t, "CITY"))
	require.NoError(t, err)

	row, err := f.Transform(schema.Row{schema.NullValue})
	require.NoError(t, err)
	assert.True(t, schema.IsNull(row[0]))
}

func TestParseFakeSpec(t *testing.T) {
	col, gen, err := ParseFakeSpec("EMAIL:internet.email")
	require.NoError(t, err)
	assert.Equal(t, "EMAIL", col)
	assert.Equal(t, "internet.email", gen)

	_, _, err = ParseFakeSpec("no-separator")
	require.Error(t, err)
}

func TestNewFakeColumnUnknownGeneratorFails(t *testing.T) {
	_, err := NewFakeColumn("COL:not.a.real.generator")
	require.Error(t, err)
}

func TestNewFakeColumnBuildsUsableTransformer(t *testing.T) {
	f, err := NewFakeColumn("EMAIL:internet.email")
	require.NoError(t, err)
	_, err = f.Initialize(buildSchema(t, "EMAIL"))
	require.NoError(t, err)

	row, err := f.Transform(schema.Row{"alice@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, "alice@example.com", row[0])
}

func TestFakeRegistryPagingIsDeterministicAcrossInstances(t *testing.T) {
	reg1, _ := fake.NewRegistry(fake.FirstName)
	reg2, _ := fake.NewRegistry(fake.FirstName)
	assert.Equal(t, reg1.Value(12345), reg2.Value(12345), "same kind + same seed must always resolve to the same page entry")
}
