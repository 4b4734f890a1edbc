package writer

import (
	"testing"

	"github.com/streamctl/streamctl/internal/dialect/postgres"
	"github.com/streamctl/streamctl/internal/schema"
	"github.com/stretchr/testify/assert"
)

func TestLogicalTypeForNativeRecognizesCommonAliases(t *testing.T) {
	cases := map[string]schema.LogicalType{
		"boolean":          schema.Bool,
		"int4":             schema.Int32,
		"bigint":           schema.Int64,
		"double precision": schema.Float64,
		"numeric":          schema.Decimal,
		"timestamptz":      schema.TimestampTz,
		"uuid":             schema.Guid,
		"bytea":            schema.Bytes,
	}
	for native, want := range cases {
		assert.Equal(t, want, logicalTypeForNative(native), native)
	}
}

func TestLogicalTypeForNativeUnknownFallsBackToString(t *testing.T) {
	assert.Equal(t, schema.String, logicalTypeForNative("some_exotic_native_type"))
}

func TestWriteStrategyReflectsOptions(t *testing.T) {
	w := NewSQLWriter(nil, Options{Strategy: Upsert})
	assert.Equal(t, Upsert, w.WriteStrategy())
}

func TestQuotedTableUsesDialectQuotingRule(t *testing.T) {
	w := NewSQLWriter(nil, Options{Table: "select", Dialect: postgres.New()})
	assert.Equal(t, `"select"`, w.quotedTable(), "a reserved word must be quoted, not normalized")

	w2 := NewSQLWriter(nil, Options{Table: "Orders", Dialect: postgres.New()})
	assert.Equal(t, "orders", w2.quotedTable(), "a plain identifier is normalized, not quoted")
}

func TestQuoteColumnUsesDialectQuotingRule(t *testing.T) {
	w := NewSQLWriter(nil, Options{Dialect: postgres.New()})
	assert.Equal(t, `"group"`, w.quoteColumn("group"))
	assert.Equal(t, "id", w.quoteColumn("ID"))
}

func TestContainsInt(t *testing.T) {
	assert.True(t, containsInt([]int{1, 2, 3}, 2))
	assert.False(t, containsInt([]int{1, 2, 3}, 5))
	assert.False(t, containsInt(nil, 0))
}

func TestRowArgsMapsSchemaNullToDriverNil(t *testing.T) {
	row := schema.Row{schema.NullValue, "x", int64(5)}
	args := rowArgs(row)
	assert.Nil(t, args[0])
	assert.Equal(t, "x", args[1])
	assert.Equal(t, int64(5), args[2])
}

func TestCanonicalPKKeyIsStableAndDistinguishesValues(t *testing.T) {
	a := canonicalPKKey([]any{int64(1), "x"})
	b := canonicalPKKey([]any{int64(1), "x"})
	c := canonicalPKKey([]any{int64(1), "y"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
