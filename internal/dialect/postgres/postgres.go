// Package postgres implements the PostgreSQL/CockroachDB-family
// dialect: lower-cased unquoted identifiers, double-quote quoting.
// Grounded on the teacher's pgx-based StagingPool/TargetPool
// (internal/types/types.go) and ProductCockroachDB/ProductPostgreSQL
// enum members.
package postgres

import (
	"fmt"
	"strings"

	"github.com/streamctl/streamctl/internal/dialect"
	"github.com/streamctl/streamctl/internal/ident"
	"github.com/streamctl/streamctl/internal/schema"
)

func init() {
	dialect.Register(New())
}

var reserved = buildReservedSet(
	"SELECT", "INSERT", "UPDATE", "DELETE", "TABLE", "FROM", "WHERE", "GROUP",
	"ORDER", "BY", "USER", "ALL", "ANY", "AND", "OR", "NOT", "NULL", "PRIMARY",
	"FOREIGN", "KEY", "REFERENCES", "DEFAULT", "UNIQUE", "CHECK", "CONSTRAINT",
	"CREATE", "DROP", "ALTER", "INTO", "VALUES", "AS", "ON", "JOIN", "LIMIT",
	"OFFSET", "WITH", "CASE", "WHEN", "THEN", "ELSE", "END", "CAST", "IN", "IS",
	"LIKE", "FOR",
)

func buildReservedSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

type postgresDialect struct{}

// New returns the PostgreSQL/CockroachDB dialect.
func New() dialect.Dialect { return postgresDialect{} }

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Normalize(name string) string { return strings.ToLower(name) }

func (postgresDialect) RequiresQuoting(name string) bool {
	return ident.NeedsQuoting(name, reserved)
}

func (postgresDialect) Quote(name string) string {
	return ident.Quote(name, '"')
}

func (postgresDialect) MapToProviderType(lt schema.LogicalType, nullable bool) string {
	native := map[schema.LogicalType]string{
		schema.Bool:        "BOOLEAN",
		schema.Int32:       "INTEGER",
		schema.Int64:       "BIGINT",
		schema.Float32:     "REAL",
		schema.Float64:     "DOUBLE PRECISION",
		schema.Decimal:     "NUMERIC",
		schema.String:      "TEXT",
		schema.Bytes:       "BYTEA",
		schema.Date:        "DATE",
		schema.Timestamp:   "TIMESTAMP",
		schema.TimestampTz: "TIMESTAMPTZ",
		schema.Guid:        "UUID",
	}
	t, ok := native[lt]
	if !ok {
		t = "TEXT"
	}
	if !nullable {
		return fmt.Sprintf("%s NOT NULL", t)
	}
	return t
}
