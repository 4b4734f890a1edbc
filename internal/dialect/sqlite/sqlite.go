// Package sqlite implements the SQLite dialect reached via
// github.com/mattn/go-sqlite3 (flarco-sling go.mod), used for the
// .sqlite/.sqlite3 file-extension sinks (spec §6).
package sqlite

import (
	"fmt"

	"github.com/streamctl/streamctl/internal/dialect"
	"github.com/streamctl/streamctl/internal/ident"
	"github.com/streamctl/streamctl/internal/schema"
)

func init() {
	dialect.Register(New())
}

var reserved = func() map[string]struct{} {
	words := []string{
		"SELECT", "INSERT", "UPDATE", "DELETE", "TABLE", "FROM", "WHERE", "GROUP",
		"ORDER", "BY", "ALL", "AND", "OR", "NOT", "NULL", "PRIMARY", "FOREIGN",
		"KEY", "REFERENCES", "DEFAULT", "UNIQUE", "CHECK", "CONSTRAINT", "CREATE",
		"DROP", "ALTER", "INTO", "VALUES", "AS", "ON", "JOIN", "WITH", "CASE",
		"WHEN", "THEN", "ELSE", "END", "CAST", "IN", "IS", "LIKE",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

type sqliteDialect struct{}

// New returns the SQLite dialect.
func New() dialect.Dialect { return sqliteDialect{} }

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Normalize(name string) string { return name }

func (sqliteDialect) RequiresQuoting(name string) bool {
	return ident.NeedsQuoting(name, reserved)
}

func (sqliteDialect) Quote(name string) string {
	return ident.Quote(name, '"')
}

func (sqliteDialect) MapToProviderType(lt schema.LogicalType, nullable bool) string {
	native := map[schema.LogicalType]string{
		schema.Bool:        "BOOLEAN",
		schema.Int32:       "INTEGER",
		schema.Int64:       "INTEGER",
		schema.Float32:     "REAL",
		schema.Float64:     "REAL",
		schema.Decimal:     "NUMERIC",
		schema.String:      "TEXT",
		schema.Bytes:       "BLOB",
		schema.Date:        "TEXT",
		schema.Timestamp:   "TEXT",
		schema.TimestampTz: "TEXT",
		schema.Guid:        "TEXT",
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
