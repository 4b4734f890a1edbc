package schema

// Status classifies one source column's relationship to the target
// schema (spec §3).
type Status int

const (
	Compatible Status = iota
	WillBeCreated
	PossibleTruncation
	TypeMismatch_
	MissingInTarget
	ExtraInTargetNullable
	ExtraInTargetNotNull
	NullabilityConflict
)

func (s Status) String() string {
	switch s {
	case Compatible:
		return "Compatible"
	case WillBeCreated:
		return "WillBeCreated"
	case PossibleTruncation:
		return "PossibleTruncation"
	case TypeMismatch_:
		return "TypeMismatch"
	case MissingInTarget:
		return "MissingInTarget"
	case ExtraInTargetNullable:
		return "ExtraInTargetNullable"
	case ExtraInTargetNotNull:
		return "ExtraInTargetNotNull"
	case NullabilityConflict:
		return "NullabilityConflict"
	default:
		return "Unknown"
	}
}

// isError reports whether this status contributes to the report's
// errors list rather than its warnings list.
func (s Status) isError() bool {
	switch s {
	case MissingInTarget, ExtraInTargetNotNull, NullabilityConflict, TypeMismatch_:
		return true
	default:
		return false
	}
}

// ColumnReport is the per-source-column outcome of the compatibility
// analysis.
type ColumnReport struct {
	SourceColumn string
	PhysicalName string
	Status       Status
	Detail       string
}

// CompatibilityReport is the aggregate outcome of comparing a source
// schema against an (optional) target schema.
type CompatibilityReport struct {
	Columns  []ColumnReport
	Errors   []string
	Warnings []string
}

// IsAcceptable reports whether the report has no errors (spec §3:
// "isAcceptable <=> errors.isEmpty").
func (r CompatibilityReport) IsAcceptable() bool { return len(r.Errors) == 0 }

// AddColumn records a per-column outcome and appends to the aggregate
// error/warning list as appropriate.
func (r *CompatibilityReport) AddColumn(cr ColumnReport) {
	r.Columns = append(r.Columns, cr)
	if cr.Status.isError() {
		r.Errors = append(r.Errors, cr.SourceColumn+": "+cr.Status.String()+" "+cr.Detail)
	} else if cr.Status != Compatible && cr.Status != WillBeCreated {
		r.Warnings = append(r.Warnings, cr.SourceColumn+": "+cr.Status.String()+" "+cr.Detail)
	}
}

// AddWarning appends a free-form warning not tied to a specific
// column, e.g. the non-empty-target-row-count notice spec §4.D
// requires.
func (r *CompatibilityReport) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
