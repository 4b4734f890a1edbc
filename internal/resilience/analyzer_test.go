package resilience

import (
	"context"
	"testing"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRowWriter struct {
	failOn func(row schema.Row) error
}

func (w *fakeRowWriter) WriteBatch(ctx context.Context, batch schema.Batch) error {
	for _, row := range batch.Rows {
		if err := w.failOn(row); err != nil {
			return err
		}
	}
	return nil
}

func buildAnalyzerSchema(t *testing.T) schema.Schema {
	t.Helper()
	sc, err := schema.Build([]schema.Column{
		{Name: "ID", LogicalType: schema.Int64},
		{Name: "EMAIL", LogicalType: schema.String},
	})
	require.NoError(t, err)
	return sc
}

func TestDiagnoseIsolatesOffendingRow(t *testing.T) {
	sc := buildAnalyzerSchema(t)
	w := &fakeRowWriter{
		failOn: func(row schema.Row) error {
			if row[1] == "bad@EMAIL" {
				return errkind.New(errkind.ConstraintViolation, "invalid EMAIL format")
			}
			return nil
		},
	}
	batch := schema.Batch{Schema: sc, Rows: []schema.Row{
		{int64(1), "ok@example.com"},
		{int64(2), "bad@EMAIL"},
		{int64(3), "also-ok@example.com"},
	}}
	cause := errkind.New(errkind.ConstraintViolation, "batch insert failed")

	err := Diagnose(context.Background(), w, batch, cause)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Row 1")
	assert.Contains(t, err.Error(), "EMAIL")
	assert.Contains(t, err.Error(), "bad@EMAIL")
	assert.Equal(t, errkind.ConstraintViolation, errkind.Of(err), "the diagnosed error keeps the original cause's kind")
}

func TestDiagnoseFallsBackToOriginalErrorWhenNoRowReproduces(t *testing.T) {
	sc := buildAnalyzerSchema(t)
	w := &fakeRowWriter{
		failOn: func(row schema.Row) error { return nil },
	}
	batch := schema.Batch{Schema: sc, Rows: []schema.Row{
		{int64(1), "a@example.com"},
		{int64(2), "b@example.com"},
	}}
	cause := errkind.New(errkind.ConstraintViolation, "cross-row unique violation")

	err := Diagnose(context.Background(), w, batch, cause)

	assert.Equal(t, cause, err)
}

func TestDiagnoseFallsBackToFirstColumnWhenErrorDoesNotNameAColumn(t *testing.T) {
	sc := buildAnalyzerSchema(t)
	w := &fakeRowWriter{
		failOn: func(row schema.Row) error {
			if row[0] == int64(2) {
				return errkind.New(errkind.Corrupt, "unrecognized failure")
			}
			return nil
		},
	}
	batch := schema.Batch{Schema: sc, Rows: []schema.Row{
		{int64(1), "a@example.com"},
		{int64(2), "b@example.com"},
	}}
	cause := errkind.New(errkind.Corrupt, "batch insert failed")

	err := Diagnose(context.Background(), w, batch, cause)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Column 'ID'")
}
