// Package oracle implements an Oracle-family dialect: unquoted
// identifiers are upper-cased, double-quote quoting. Grounded on the
// teacher's ProductOracle enum member (internal/types/types.go).
package oracle

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
		"DROP", "ALTER", "INTO", "VALUES", "AS", "ON", "JOIN", "ROWNUM", "LEVEL",
		"CONNECT", "START", "WITH", "CASE", "WHEN", "THEN", "ELSE", "END", "CAST",
		"IN", "IS", "LIKE", "NUMBER", "VARCHAR2", "DATE", "SYSDATE",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

type oracleDialect struct{}

// New returns the Oracle dialect.
func New() dialect.Dialect { return oracleDialect{} }

func (oracleDialect) Name() string { return "oracle" }

func (oracleDialect) Normalize(name string) string { return strings.ToUpper(name) }

func (oracleDialect) RequiresQuoting(name string) bool {
	return ident.NeedsQuoting(name, reserved)
}

func (oracleDialect) Quote(name string) string {
	return ident.Quote(name, '"')
}

func (oracleDialect) MapToProviderType(lt schema.LogicalType, nullable bool) string {
	native := map[schema.LogicalType]string{
		schema.Bool:        "NUMBER(1)",
		schema.Int32:       "NUMBER(10)",
		schema.Int64:       "NUMBER(19)",
		schema.Float32:     "BINARY_FLOAT",
		schema.Float64:     "BINARY_DOUBLE",
		schema.Decimal:     "NUMBER(38,10)",
		schema.String:      "VARCHAR2(4000)",
		schema.Bytes:       "BLOB",
		schema.Date:        "DATE",
		schema.Timestamp:   "TIMESTAMP",
		schema.TimestampTz: "TIMESTAMP WITH TIME ZONE",
		schema.Guid:        "RAW(16)",
	}
	t, ok := native[lt]
	if !ok {
		t = "VARCHAR2(4000)"
	}
	if !nullable {
		return fmt.Sprintf("%s NOT NULL", t)
	}
	return t
}
