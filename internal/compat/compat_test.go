package compat

import (
	"testing"

	"github.com/streamctl/streamctl/internal/dialect/postgres"
	"github.com/streamctl/streamctl/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolvePhysicalNameIsPure exercises Testable Property 3: the
// resolution rule is a pure function of (name, caseSensitive, dialect).
func TestResolvePhysicalNameIsPure(t *testing.T) {
	pg := postgres.New()

	assert.Equal(t, "UserId", ResolvePhysicalName("UserId", false, nil), "no dialect: name passes through unchanged")
	assert.Equal(t, "userid", ResolvePhysicalName("UserId", false, pg), "postgres normalizes unquoted mixed-case to lower")
	assert.Equal(t, "UserId", ResolvePhysicalName("UserId", true, pg), "case-sensitive column bypasses normalization")
	assert.Equal(t, "Select", ResolvePhysicalName("Select", false, pg), "reserved word keeps the name verbatim instead of normalizing it")

	// Calling again with identical inputs must produce an identical
	// result (purity), regardless of call order/history.
	assert.Equal(t, ResolvePhysicalName("UserId", false, pg), ResolvePhysicalName("UserId", false, pg))
}

func buildSchema(t *testing.T, cols ...schema.Column) schema.Schema {
	t.Helper()
	sc, err := schema.Build(cols)
	require.NoError(t, err)
	return sc
}

func TestAnalyzeTargetDoesNotExist(t *testing.T) {
	src := buildSchema(t, schema.Column{Name: "id", LogicalType: schema.Int64})
	report := Analyze(src, schema.TargetSchema{Exists: false}, nil)
	require.Len(t, report.Columns, 1)
	assert.Equal(t, schema.WillBeCreated, report.Columns[0].Status)
	assert.True(t, report.IsAcceptable())
}

func TestAnalyzeCompatibleMatch(t *testing.T) {
	src := buildSchema(t, schema.Column{Name: "id", LogicalType: schema.Int64, Nullable: false})
	target := schema.TargetSchema{
		Exists: true,
		Columns: []schema.TargetColumn{
			{Name: "id", InferredLogicalType: schema.Int64, Nullable: false, IsPrimaryKey: true},
		},
	}
	report := Analyze(src, target, nil)
	require.Len(t, report.Columns, 1)
	assert.Equal(t, schema.Compatible, report.Columns[0].Status)
	assert.True(t, report.IsAcceptable())
}

func TestAnalyzeMissingInTargetIsError(t *testing.T) {
	src := buildSchema(t, schema.Column{Name: "id", LogicalType: schema.Int64})
	target := schema.TargetSchema{
		Exists:  true,
		Columns: []schema.TargetColumn{{Name: "other", InferredLogicalType: schema.Int64}},
	}
	report := Analyze(src, target, nil)
	assert.False(t, report.IsAcceptable())
	assert.Equal(t, schema.MissingInTarget, report.Columns[0].Status)
}

func TestAnalyzeNullabilityConflictIsError(t *testing.T) {
	src := buildSchema(t, schema.Column{Name: "id", LogicalType: schema.Int64, Nullable: true})
	target := schema.TargetSchema{
		Exists:  true,
		Columns: []schema.TargetColumn{{Name: "id", InferredLogicalType: schema.Int64, Nullable: false}},
	}
	report := Analyze(src, target, nil)
	assert.False(t, report.IsAcceptable())
	assert.Equal(t, schema.NullabilityConflict, report.Columns[0].Status)
}

func TestAnalyzeExtraNotNullInTargetIsError(t *testing.T) {
	src := buildSchema(t, schema.Column{Name: "id", LogicalType: schema.Int64})
	target := schema.TargetSchema{
		Exists: true,
		Columns: []schema.TargetColumn{
			{Name: "id", InferredLogicalType: schema.Int64},
			{Name: "required_extra", Nullable: false},
		},
	}
	report := Analyze(src, target, nil)
	assert.False(t, report.IsAcceptable())
}

func TestAnalyzeExtraNullableInTargetIsWarningOnly(t *testing.T) {
	src := buildSchema(t, schema.Column{Name: "id", LogicalType: schema.Int64})
	target := schema.TargetSchema{
		Exists: true,
		Columns: []schema.TargetColumn{
			{Name: "id", InferredLogicalType: schema.Int64},
			{Name: "optional_extra", Nullable: true},
		},
	}
	report := Analyze(src, target, nil)
	assert.True(t, report.IsAcceptable())
	assert.NotEmpty(t, report.Warnings)
}

func TestAnalyzeStringTruncationWarning(t *testing.T) {
	src := buildSchema(t, schema.Column{Name: "name", LogicalType: schema.String, Nullable: true})
	target := schema.TargetSchema{
		Exists: true,
		Columns: []schema.TargetColumn{
			{Name: "name", InferredLogicalType: schema.String, Nullable: true, MaxLength: 10},
		},
	}
	report := Analyze(src, target, nil)
	assert.True(t, report.IsAcceptable())
	assert.Equal(t, schema.PossibleTruncation, report.Columns[0].Status)
}

func TestAnalyzeNonEmptyTargetAddsWarning(t *testing.T) {
	rowCount := int64(42)
	src := buildSchema(t, schema.Column{Name: "id", LogicalType: schema.Int64})
	target := schema.TargetSchema{
		Exists:   true,
		Columns:  []schema.TargetColumn{{Name: "id", InferredLogicalType: schema.Int64}},
		RowCount: &rowCount,
	}
	report := Analyze(src, target, nil)
	assert.NotEmpty(t, report.Warnings)
}
