// Package sqlserver implements a SQL-Server-family dialect: unquoted
// identifiers are left unchanged (SQL Server's default collation is
// case-insensitive but does not fold casing), bracket quoting.
package sqlserver

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

var reserved = func() map[string]struct{} {
	words := []string{
		"SELECT", "INSERT", "UPDATE", "DELETE", "TABLE", "FROM", "WHERE", "GROUP",
		"ORDER", "BY", "ALL", "AND", "OR", "NOT", "NULL", "PRIMARY", "FOREIGN",
		"KEY", "REFERENCES", "DEFAULT", "UNIQUE", "CHECK", "CONSTRAINT", "CREATE",
		"DROP", "ALTER", "INTO", "VALUES", "AS", "ON", "JOIN", "TOP", "WITH",
		"CASE", "WHEN", "THEN", "ELSE", "END", "CAST", "IN", "IS", "LIKE", "USER",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

type sqlserverDialect struct{}

// New returns the SQL Server dialect.
func New() dialect.Dialect { return sqlserverDialect{} }

func (sqlserverDialect) Name() string { return "sqlserver" }

func (sqlserverDialect) Normalize(name string) string { return name }

func (sqlserverDialect) RequiresQuoting(name string) bool {
	return ident.NeedsQuoting(name, reserved)
}

func (sqlserverDialect) Quote(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (sqlserverDialect) MapToProviderType(lt schema.LogicalType, nullable bool) string {
	native := map[schema.LogicalType]string{
		schema.Bool:        "BIT",
		schema.Int32:       "INT",
		schema.Int64:       "BIGINT",
		schema.Float32:     "REAL",
		schema.Float64:     "FLOAT",
		schema.Decimal:     "DECIMAL(38,10)",
		schema.String:      "NVARCHAR(MAX)",
		schema.Bytes:       "VARBINARY(MAX)",
		schema.Date:        "DATE",
		schema.Timestamp:   "DATETIME2",
		schema.TimestampTz: "DATETIMEOFFSET",
		schema.Guid:        "UNIQUEIDENTIFIER",
	}
	t, ok := native[lt]
	if !ok {
		t = "NVARCHAR(MAX)"
	}
	if !nullable {
		return fmt.Sprintf("%s NOT NULL", t)
	}
	return t
}
