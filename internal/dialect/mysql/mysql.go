// Package mysql implements the MySQL/MariaDB dialect: unquoted
// identifiers preserve case as given (MySQL's default collation is
// case-insensitive on most platforms, but it does not *normalize*
// casing the way Postgres lower-cases), backtick quoting.
// Grounded on the teacher's stdpool.OpenMySQLAsTarget
// (internal/util/stdpool/my.go), which sets `sql_mode=ansi` precisely
// so quoted identifiers behave predictably.
package mysql

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
		"DROP", "ALTER", "INTO", "VALUES", "AS", "ON", "JOIN", "LIMIT", "OFFSET",
		"WITH", "CASE", "WHEN", "THEN", "ELSE", "END", "CAST", "IN", "IS", "LIKE",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

type mysqlDialect struct{}

// New returns the MySQL/MariaDB dialect.
func New() dialect.Dialect { return mysqlDialect{} }

func (mysqlDialect) Name() string { return "mysql" }

// Normalize is the identity function: MySQL, run under the ansi
// sql_mode the teacher configures, preserves the case an unquoted
// identifier was written with rather than folding it.
func (mysqlDialect) Normalize(name string) string { return name }

func (mysqlDialect) RequiresQuoting(name string) bool {
	return ident.NeedsQuoting(name, reserved)
}

func (mysqlDialect) Quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlDialect) MapToProviderType(lt schema.LogicalType, nullable bool) string {
	native := map[schema.LogicalType]string{
		schema.Bool:        "TINYINT(1)",
		schema.Int32:       "INT",
		schema.Int64:       "BIGINT",
		schema.Float32:     "FLOAT",
		schema.Float64:     "DOUBLE",
		schema.Decimal:     "DECIMAL(38,10)",
		schema.String:      "TEXT",
		schema.Bytes:       "BLOB",
		schema.Date:        "DATE",
		schema.Timestamp:   "DATETIME",
		schema.TimestampTz: "DATETIME",
		schema.Guid:        "CHAR(36)",
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
