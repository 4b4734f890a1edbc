// Package ident implements the identifier-casing rules a sink applies
// to column and table names: when a name needs quoting to preserve its
// case, and what its "physical" (as-stored) spelling becomes once a
// dialect's normalization rule has been applied.
//
// The teacher (cdc-sink) threads an ident.Ident/ident.Table pair
// through nearly every package (types.go's ColData.Name, resolver.go's
// ident.Table) to avoid ever comparing raw strings for table/column
// identity; this package rebuilds that contract from those call sites
// for the column-matching rule in spec §4.D.
package ident

import "strings"

// Ident is a single quoted-or-not identifier.
type Ident struct {
	name          string
	caseSensitive bool
}

// New constructs an Ident. caseSensitive should be true iff the
// producing system required quoting to preserve the name's case
// (spec §3's Column.caseSensitive).
func New(name string, caseSensitive bool) Ident {
	return Ident{name: name, caseSensitive: caseSensitive}
}

// Name returns the identifier's original spelling.
func (i Ident) Name() string { return i.name }

// CaseSensitive reports whether this identifier must be compared and
// quoted case-sensitively.
func (i Ident) CaseSensitive() bool { return i.caseSensitive }

// Equal compares two identifiers under the identity rule: if either is
// case-sensitive, comparison is exact; otherwise it's ASCII
// case-insensitive.
func (i Ident) Equal(other Ident) bool {
	if i.caseSensitive || other.caseSensitive {
		return i.name == other.name
	}
	return strings.EqualFold(i.name, other.name)
}

// Table pairs a schema-qualified name for use in quoting/matching; it
// mirrors the teacher's ident.Table (schema, table) pair without
// needing the teacher's full qualified-name parser.
type Table struct {
	Schema string
	Name   string
}

// String renders a dotted, unquoted form suitable for logging.
func (t Table) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// NewTable builds a Table from a schema and a bare table name.
func NewTable(schema, name string) Table {
	return Table{Schema: schema, Name: name}
}

// NeedsQuoting reports whether name needs quoting to be used verbatim
// by a SQL dialect: it isn't a simple lower-case/uppercase-by-default
// identifier (contains anything other than ASCII letters, digits and
// underscore, or doesn't start with a letter/underscore), or it
// collides with one of the dialect's reserved words.
func NeedsQuoting(name string, reserved map[string]struct{}) bool {
	if name == "" {
		return true
	}
	if !isPlainIdent(name) {
		return true
	}
	_, isReserved := reserved[strings.ToUpper(name)]
	return isReserved
}

func isPlainIdent(name string) bool {
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			continue
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
			continue
		default:
			return false
		}
	}
	return true
}

// Quote wraps name in the dialect's quote character, doubling any
// embedded instance of that character (the universal SQL escaping
// rule across the dialects in this pack: double-quote for Postgres/
// Oracle, backtick for MySQL handled by the caller passing '`').
func Quote(name string, quoteChar byte) string {
	q := string(quoteChar)
	escaped := strings.ReplaceAll(name, q, q+q)
	return q + escaped + q
}
