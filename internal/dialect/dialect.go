// Package dialect generalizes the teacher's Product enum
// (internal/types/types.go: ProductCockroachDB/ProductOracle/
// ProductPostgreSQL) into a small registry of Dialect values, each
// owning the identity-normalization and native-type-mapping rules spec
// §4.C and §4.D delegate to "the dialect".
package dialect

import "github.com/streamctl/streamctl/internal/schema"

// Dialect captures everything the writer and the compatibility
// analyzer need to know about a sink family's identifier and type
// rules (spec §4.C "Schema creation", §4.D "ColumnMatcher resolution
// rule").
type Dialect interface {
	// Name identifies the dialect for logging and provider dispatch,
	// e.g. "postgres", "mysql", "oracle", "sqlserver", "sqlite".
	Name() string

	// Normalize returns the physical spelling an unquoted identifier
	// takes on in this dialect, e.g. lower-cased for Postgres-likes,
	// upper-cased for Oracle-likes, unchanged for SQL-Server-likes.
	Normalize(name string) string

	// RequiresQuoting reports whether name needs to be quoted verbatim
	// to be used by this dialect (reserved word collision or
	// non-plain characters).
	RequiresQuoting(name string) bool

	// Quote renders name as a quoted identifier.
	Quote(name string) string

	// MapToProviderType renders the dialect-specific native type used
	// to create a column of the given logical type.
	MapToProviderType(lt schema.LogicalType, nullable bool) string
}

// registry is the provider-style dispatch table, matching the
// teacher's wire.NewSet-based Set of constructors (spec Design Note:
// "Dynamic dispatch over drivers").
var registry = map[string]Dialect{}

// Register adds a Dialect to the registry under its own Name(). Called
// from each dialect subpackage's init().
func Register(d Dialect) {
	registry[d.Name()] = d
}

// Lookup returns the registered Dialect for name, or nil if none is
// registered.
func Lookup(name string) Dialect {
	return registry[name]
}

// Names returns the registered dialect names, for diagnostics/help
// text.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}
