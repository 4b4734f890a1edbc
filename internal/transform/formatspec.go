package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// placeholderPattern matches the two substitution forms spec §4.E
// defines for a Format/Clone template: {{COL}} (raw) and {COL:fmt}
// (formatted). The raw alternative is tried first so its doubled
// braces are never mistaken for a formatted placeholder's single
// pair.
var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}|\{([^{}:]+):([^{}]*)\}`)

type formatPiece struct {
	literal string
	col     string
	layout  string
	isRef   bool
}

// ParseFormatSpec parses a "TARGET:template" configuration string (the
// shape spec §4.E's Format/Clone mapping is configured with) into a
// FormatRule.
func ParseFormatSpec(spec string) (FormatRule, error) {
	target, template, ok := strings.Cut(spec, ":")
	if !ok {
		return FormatRule{}, errkind.Newf(errkind.InvalidConfiguration,
			"format spec %q has no ':' separating target column from template", spec)
	}
	return NewFormatRule(target, template)
}

// NewFormatRule compiles template into a FormatRule targeting target.
// Referenced columns (whether other rule targets or plain source
// columns) become Deps, so the caller can feed every rule's Deps into
// the topological sort Format.Initialize performs. Undefined
// references resolve to the empty string and malformed format strings
// fall back to the referenced value's invariant string form, per
// spec §4.E.
func NewFormatRule(target, template string) (FormatRule, error) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(template, -1)

	var pieces []formatPiece
	var deps []string
	seen := make(map[string]bool)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			pieces = append(pieces, formatPiece{literal: template[last:m[0]]})
		}
		var col, layout string
		if m[2] != -1 {
			col = template[m[2]:m[3]]
		} else {
			col = template[m[4]:m[5]]
			layout = template[m[6]:m[7]]
		}
		pieces = append(pieces, formatPiece{col: col, layout: layout, isRef: true})
		if !seen[col] {
			seen[col] = true
			deps = append(deps, col)
		}
		last = m[1]
	}
	if last < len(template) {
		pieces = append(pieces, formatPiece{literal: template[last:]})
	}

	compute := func(get func(col string) any) (any, error) {
		var sb strings.Builder
		for _, p := range pieces {
			if !p.isRef {
				sb.WriteString(p.literal)
				continue
			}
			v := get(p.col)
			if schema.IsNull(v) {
				continue // undefined/null reference resolves to ""
			}
			if p.layout == "" {
				sb.WriteString(schema.FormatInvariant(v))
				continue
			}
			if formatted, ok := applyInvariantFormat(v, p.layout); ok {
				sb.WriteString(formatted)
			} else {
				sb.WriteString(schema.FormatInvariant(v))
			}
		}
		return sb.String(), nil
	}

	return FormatRule{Target: target, Deps: deps, Compute: compute}, nil
}

// applyInvariantFormat renders v under layout, spec §4.E's
// "culture-invariant formatted substitution". Three layout families
// are recognized: a decimal-point numeric pattern ("0.00", "0.0000"),
// a zero-padded integer pattern ("D6"), and a date/time pattern built
// from dd/MM/yyyy-style tokens. Anything else reports !ok so the
// caller can fall back to the raw value.
func applyInvariantFormat(v any, layout string) (string, bool) {
	switch {
	case isDecimalPattern(layout):
		f, ok := asFloat(v)
		if !ok {
			return "", false
		}
		places := len(layout) - strings.IndexByte(layout, '.') - 1
		return strconv.FormatFloat(f, 'f', places, 64), true

	case len(layout) >= 2 && (layout[0] == 'D' || layout[0] == 'd') && isDigits(layout[1:]):
		width, err := strconv.Atoi(layout[1:])
		if err != nil {
			return "", false
		}
		n, ok := asInt(v)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%0*d", width, n), true

	case looksLikeDateLayout(layout):
		t, ok := asTime(v)
		if !ok {
			return "", false
		}
		return t.Format(dotnetLayoutToGo(layout)), true

	default:
		return "", false
	}
}

func isDecimalPattern(layout string) bool {
	dot := strings.IndexByte(layout, '.')
	if dot == -1 || dot == 0 {
		return false
	}
	for i, r := range layout {
		if r != '0' && !(i == dot) {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func looksLikeDateLayout(layout string) bool {
	return strings.ContainsAny(layout, "dMyH")
}

// dotnetLayoutToGo translates the .NET/ICU-style date tokens spec
// §4.E's examples use (dd/MM/yyyy) into Go's reference-time layout.
// Longer tokens are replaced before their prefixes so "yyyy" is never
// partially consumed by a "yy" rule.
func dotnetLayoutToGo(layout string) string {
	replacer := strings.NewReplacer(
		"yyyy", "2006",
		"yy", "06",
		"MM", "01",
		"dd", "02",
		"HH", "15",
		"mm", "04",
		"ss", "05",
	)
	return replacer.Replace(layout)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	default:
		return time.Time{}, false
	}
}
