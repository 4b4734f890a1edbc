// Package compat implements the schema compatibility analyzer: the
// ColumnMatcher resolution rule and the CompatibilityReport it
// produces (spec §4.D).
package compat

import (
	"strings"

	"github.com/streamctl/streamctl/internal/dialect"
	"github.com/streamctl/streamctl/internal/schema"
)

// ResolvePhysicalName implements the single-source-of-truth
// ColumnMatcher rule from spec §4.D:
//
//  1. No dialect supplied: physical name = source name, compared
//     case-insensitive ASCII.
//  2. Dialect supplied, and the column is case-sensitive or the
//     dialect would require quoting the name: physical name = source
//     name verbatim.
//  3. Otherwise: physical name = dialect.Normalize(sourceName).
//
// This is a pure function of (name, caseSensitive, dialect) per
// Testable Property 3.
func ResolvePhysicalName(name string, caseSensitive bool, d dialect.Dialect) string {
	if d == nil {
		return name
	}
	if caseSensitive || d.RequiresQuoting(name) {
		return name
	}
	return d.Normalize(name)
}

// matchKey produces the key used to compare a resolved physical name
// against the target's column names. When no dialect is present,
// matching is case-insensitive ASCII (rule 1); otherwise the dialect
// has already normalized/verbatim-preserved the name and comparison
// against the target is exact/ordinal (spec §4.D: "Target-side
// matching is then exact (ordinal) against the normalized names").
func matchKey(physicalName string, d dialect.Dialect) string {
	if d == nil {
		return strings.ToUpper(physicalName)
	}
	return physicalName
}
