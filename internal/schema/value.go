package schema

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/streamctl/streamctl/internal/errkind"
)

// Null is the language-neutral null marker described in spec §3. Go's
// nil already serves this role for typed values stored as `any`, but a
// distinct sentinel lets a String-carrier cell distinguish "the string
// value NULL" from "no value" when a source hands through raw text.
type nullType struct{}

// NullValue is the canonical null marker stored in a Row cell.
var NullValue = nullType{}

// IsNull reports whether v represents a null cell: either the NullValue
// sentinel or an untyped nil.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(nullType)
	return ok
}

// LogicalTypeOf inspects a Go value as produced by a reader and returns
// the LogicalType it represents. String-carrier values (raw strings
// from a source that defers typing to the sink) report String.
func LogicalTypeOf(v any) LogicalType {
	switch v.(type) {
	case nil, nullType:
		return Unknown
	case bool:
		return Bool
	case int32:
		return Int32
	case int64, int:
		return Int64
	case float32:
		return Float32
	case float64:
		return Float64
	case decimal.Decimal:
		return Decimal
	case string:
		return String
	case []byte:
		return Bytes
	case time.Time:
		return Timestamp
	case uuid.UUID:
		return Guid
	default:
		return Unknown
	}
}

// Coerce converts v into a representation matching targetType,
// following spec §4.A's rules: nulls pass through; exact-type values
// pass through; string values parse using culture-invariant rules;
// numeric upcasts are lossless; narrowing conversions fail with
// TypeMismatch.
func Coerce(v any, target LogicalType) (any, error) {
	if IsNull(v) {
		return NullValue, nil
	}
	if LogicalTypeOf(v) == target {
		return v, nil
	}
	if s, ok := v.(string); ok {
		return coerceString(s, target)
	}
	from := LogicalTypeOf(v)
	if IsNumericUpcast(from, target) {
		return upcastNumeric(v, target)
	}
	return nil, errkind.Newf(errkind.TypeMismatch,
		"cannot coerce value of logical type %s to %s", from, target)
}

func coerceString(s string, target LogicalType) (any, error) {
	switch target {
	case String:
		return s, nil
	case Bool:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, errkind.Newf(errkind.TypeMismatch, "invalid bool literal %q", s)
	case Int32:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return nil, errkind.Wrap(errkind.TypeMismatch, err, "invalid int32 literal")
		}
		return int32(n), nil
	case Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, errkind.Wrap(errkind.TypeMismatch, err, "invalid int64 literal")
		}
		return n, nil
	case Float32:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
		if err != nil {
			return nil, errkind.Wrap(errkind.TypeMismatch, err, "invalid float32 literal")
		}
		return float32(f), nil
	case Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errkind.Wrap(errkind.TypeMismatch, err, "invalid float64 literal")
		}
		return f, nil
	case Decimal:
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return nil, errkind.Wrap(errkind.TypeMismatch, err, "invalid decimal literal")
		}
		return d, nil
	case Date:
		t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
		if err != nil {
			return nil, errkind.Wrap(errkind.TypeMismatch, err, "invalid ISO-8601 date literal")
		}
		return t, nil
	case Timestamp, TimestampTz:
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
		if err != nil {
			return nil, errkind.Wrap(errkind.TypeMismatch, err, "invalid ISO-8601 timestamp literal")
		}
		return t, nil
	case Guid:
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, errkind.Wrap(errkind.TypeMismatch, err, "invalid guid literal")
		}
		return id, nil
	case Bytes:
		return []byte(s), nil
	default:
		return nil, errkind.Newf(errkind.TypeMismatch, "unsupported coercion target %s", target)
	}
}

func upcastNumeric(v any, target LogicalType) (any, error) {
	var f float64
	switch n := v.(type) {
	case bool:
		if n {
			f = 1
		}
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	default:
		return nil, errors.Errorf("unsupported numeric source type %T", v)
	}
	switch target {
	case Int32:
		return int32(f), nil
	case Int64:
		return int64(f), nil
	case Float32:
		return float32(f), nil
	case Float64:
		return f, nil
	case Decimal:
		return decimal.NewFromFloat(f), nil
	default:
		return nil, errors.Errorf("unsupported numeric upcast target %s", target)
	}
}

// FormatInvariant renders v using culture-invariant formatting rules,
// matching the canonicalization spec.md §6 requires for checksums and
// §4.C requires for diff keys: null -> "NULL", everything else -> its
// invariant string form.
func FormatInvariant(v any) string {
	if IsNull(v) {
		return "NULL"
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float32:
		return strconv.FormatFloat(float64(t), 'G', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'G', -1, 64)
	case decimal.Decimal:
		return t.String()
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format("2006-01-02 15:04:05.000")
	case uuid.UUID:
		return t.String()
	default:
		return ""
	}
}
