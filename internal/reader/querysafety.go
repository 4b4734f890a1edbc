package reader

import (
	"regexp"
	"strings"

	"github.com/streamctl/streamctl/internal/errkind"
)

// allowedPrefixes are the statement types a SQL reader's query may
// begin with (spec §4.B).
var allowedPrefixes = []string{"SELECT", "WITH", "PRAGMA", "DESCRIBE"}

// forbiddenKeywords must not appear as standalone identifiers in the
// query text (spec §4.B).
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "TRUNCATE", "ALTER", "CREATE",
	"GRANT", "REVOKE", "MERGE", "CALL", "EXEC", "EXECUTE", "COPY", "ATTACH",
	"DETACH", "VACUUM", "SAVEPOINT", "ROLLBACK", "COMMIT", "RENAME", "REPLACE",
}

// forbiddenPrefixes must not appear as the prefix of any standalone
// identifier (spec §4.B: "the prefixes DBMS_ UTL_ XP_ SP_").
var forbiddenPrefixes = []string{"DBMS_", "UTL_", "XP_", "SP_"}

// forbiddenSubstrings must never appear in the query text, regardless
// of word boundaries (spec §4.B).
var forbiddenSubstrings = []string{";", "--", "/*", "INTO ", "OUTFILE", "DUMPFILE"}

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// ValidateQuery screens a SQL query per spec §4.B. If unsafe is true,
// violations are downgraded to a returned warning string instead of an
// error (spec: "A caller may override with an explicit unsafe flag
// that records a warning instead of failing").
func ValidateQuery(query string, unsafe bool) (warning string, err error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", errkind.New(errkind.InvalidArgument, "query must not be empty")
	}

	upper := strings.ToUpper(trimmed)
	violations := make([]string, 0, 4)

	if !hasAllowedPrefix(upper) {
		violations = append(violations, "query must begin with SELECT, WITH, PRAGMA or DESCRIBE")
	}

	for _, tok := range identifierPattern.FindAllString(upper, -1) {
		for _, kw := range forbiddenKeywords {
			if tok == kw {
				violations = append(violations, "query contains forbidden keyword "+kw)
			}
		}
		for _, pfx := range forbiddenPrefixes {
			if strings.HasPrefix(tok, pfx) {
				violations = append(violations, "query contains forbidden identifier prefix "+pfx)
			}
		}
	}

	for _, sub := range forbiddenSubstrings {
		if strings.Contains(upper, sub) {
			violations = append(violations, "query contains forbidden substring "+strings.TrimSpace(sub))
		}
	}

	if len(violations) == 0 {
		return "", nil
	}

	msg := strings.Join(violations, "; ")
	if unsafe {
		return "unsafe query override in effect: " + msg, nil
	}
	return "", errkind.New(errkind.InvalidArgument, msg)
}

func hasAllowedPrefix(upperQuery string) bool {
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(upperQuery, p) {
			return true
		}
	}
	return false
}
