package compat

import (
	"fmt"

	"github.com/streamctl/streamctl/internal/dialect"
	"github.com/streamctl/streamctl/internal/schema"
)

// Analyze compares a source schema against an optional target schema,
// using an optional dialect to resolve physical names, and produces a
// CompatibilityReport (spec §4.D).
//
// target may be the zero value (Exists == false) to represent "the
// sink doesn't exist yet" — every source column is then WillBeCreated
// rather than MissingInTarget.
func Analyze(source schema.Schema, target schema.TargetSchema, d dialect.Dialect) schema.CompatibilityReport {
	var report schema.CompatibilityReport

	targetByKey := make(map[string]schema.TargetColumn, len(target.Columns))
	consumed := make(map[string]bool, len(target.Columns))
	for _, tc := range target.Columns {
		targetByKey[matchKey(tc.Name, d)] = tc
	}

	for _, col := range source.Columns() {
		physical := ResolvePhysicalName(col.Name, col.CaseSensitive, d)
		key := matchKey(physical, d)

		if !target.Exists {
			report.AddColumn(schema.ColumnReport{
				SourceColumn: col.Name,
				PhysicalName: physical,
				Status:       schema.WillBeCreated,
			})
			continue
		}

		tc, ok := targetByKey[key]
		if !ok {
			report.AddColumn(schema.ColumnReport{
				SourceColumn: col.Name,
				PhysicalName: physical,
				Status:       schema.MissingInTarget,
				Detail:       fmt.Sprintf("no target column matches physical name %q", physical),
			})
			continue
		}
		consumed[key] = true
		report.AddColumn(evaluatePair(col, physical, tc))
	}

	if target.Exists {
		for _, tc := range target.Columns {
			key := matchKey(tc.Name, d)
			if consumed[key] {
				continue
			}
			status := schema.ExtraInTargetNullable
			if !tc.Nullable && !tc.IsPrimaryKey {
				status = schema.ExtraInTargetNotNull
			}
			report.AddColumn(schema.ColumnReport{
				SourceColumn: "",
				PhysicalName: tc.Name,
				Status:       status,
				Detail:       fmt.Sprintf("target column %q has no matching source column", tc.Name),
			})
		}
	}

	if target.RowCount != nil && *target.RowCount > 0 {
		msg := fmt.Sprintf("target already has %d rows", *target.RowCount)
		if target.SizeBytes != nil {
			msg += fmt.Sprintf(" (%s)", formatSize(*target.SizeBytes))
		}
		report.AddWarning(msg)
	}

	return report
}

// evaluatePair derives the Status for one matched (source, target)
// column pair per spec §4.D's "Status derivation" rules.
func evaluatePair(col schema.Column, physical string, tc schema.TargetColumn) schema.ColumnReport {
	base := schema.ColumnReport{SourceColumn: col.Name, PhysicalName: physical}

	switch {
	case col.LogicalType == tc.InferredLogicalType:
		// exact match; nullability is still checked below.
	case schema.IsNumericUpcast(col.LogicalType, tc.InferredLogicalType):
		// lossless upcast; nullability is still checked below.
	case col.LogicalType == schema.String && tc.InferredLogicalType == schema.String:
		if tc.MaxLength > 0 {
			base.Status = schema.PossibleTruncation
			base.Detail = fmt.Sprintf("target column has maxLength %d", tc.MaxLength)
			return base
		}
	default:
		base.Status = schema.TypeMismatch_
		base.Detail = fmt.Sprintf("source type %s is not compatible with target type %s",
			col.LogicalType, tc.InferredLogicalType)
		return base
	}

	if col.Nullable && !tc.Nullable && !tc.IsPrimaryKey {
		base.Status = schema.NullabilityConflict
		base.Detail = "source column is nullable but target column is NOT NULL"
		return base
	}

	base.Status = schema.Compatible
	return base
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
