package transform

import (
	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// FormatRule derives Target from Deps (other column names, which may
// themselves be other FormatRule targets). Compute receives a getter
// closing over the row under construction, so it can read both
// original columns and already-resolved derived columns.
type FormatRule struct {
	Target string
	Deps   []string
	Compute func(get func(col string) any) (any, error)
}

// Format is the spec §4.E "Format/Clone" transformer: it evaluates a
// set of derived columns whose values may depend on each other,
// resolving evaluation order with a topological sort over the
// dependency graph formed by Deps. A cycle is an InvalidConfiguration
// error raised at Initialize, before any row is processed.
type Format struct {
	Rules []FormatRule

	order      []int          // indices into Rules, in evaluation order
	colIdx     []int          // Target's column index in the schema, per rule
	targetIdx  map[string]int // rule Target -> colIdx entry, for get()'s fast path
	sourceIdx  map[string]int // original (pre-rule) column name -> row index
}

var _ RowTransformer = (*Format)(nil)

func (f *Format) Initialize(in schema.Schema) (schema.Schema, error) {
	order, err := topoSortRules(f.Rules)
	if err != nil {
		return schema.Schema{}, err
	}
	f.order = order

	sourceIdx := make(map[string]int, in.Len())
	for i, c := range in.Columns() {
		sourceIdx[c.Name] = i
	}
	f.sourceIdx = sourceIdx

	// Each rule's target either already exists in the incoming schema
	// (Clone/overwrite case) or is a new virtual column added by this
	// transformer (Format case).
	cols := append([]schema.Column(nil), in.Columns()...)
	colIdx := make([]int, len(f.Rules))
	targetIdx := make(map[string]int, len(f.Rules))
	for i, rule := range f.Rules {
		if idx := schema.FindColumn(in, rule.Target, false); idx != -1 {
			colIdx[i] = idx
		} else {
			colIdx[i] = len(cols)
			cols = append(cols, schema.Column{Name: rule.Target, LogicalType: schema.Unknown, Nullable: true})
		}
		targetIdx[rule.Target] = i
	}
	f.colIdx = colIdx
	f.targetIdx = targetIdx

	out, err := schema.Build(cols)
	if err != nil {
		return schema.Schema{}, errkind.Wrap(errkind.InvalidConfiguration, err, "building format transformer schema")
	}
	return out, nil
}

func (f *Format) Transform(row schema.Row) (schema.Row, error) {
	maxIdx := len(row) - 1
	for _, idx := range f.colIdx {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	out := make(schema.Row, maxIdx+1)
	copy(out, row)

	// get resolves col against already-evaluated rule targets first (so
	// a downstream rule sees an upstream rule's computed value, not a
	// stale source column of the same name), then against the row's
	// original source columns. A name matching neither is undefined.
	get := func(col string) any {
		if i, ok := f.targetIdx[col]; ok {
			return out[f.colIdx[i]]
		}
		if idx, ok := f.sourceIdx[col]; ok {
			return out[idx]
		}
		return schema.NullValue
	}

	for _, ruleIdx := range f.order {
		rule := f.Rules[ruleIdx]
		v, err := rule.Compute(get)
		if err != nil {
			return nil, errkind.Wrap(errkind.ScriptError, err, "evaluating format rule for "+rule.Target)
		}
		out[f.colIdx[ruleIdx]] = v
	}
	return out, nil
}

// topoSortRules orders rules by Kahn's algorithm so that every rule
// whose Deps names another rule's Target is evaluated after that
// rule. Deps naming a column that is not itself a rule target (an
// original source column) impose no ordering constraint. A
// dependency cycle is reported as InvalidConfiguration.
func topoSortRules(rules []FormatRule) ([]int, error) {
	targetToIdx := make(map[string]int, len(rules))
	for i, r := range rules {
		targetToIdx[r.Target] = i
	}

	indegree := make([]int, len(rules))
	adjacency := make([][]int, len(rules))
	for i, r := range rules {
		for _, dep := range r.Deps {
			depIdx, ok := targetToIdx[dep]
			if !ok {
				continue
			}
			adjacency[depIdx] = append(adjacency[depIdx], i)
			indegree[i]++
		}
	}

	var queue []int
	for i := range rules {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, len(rules))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, next := range adjacency[n] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(rules) {
		return nil, errkind.New(errkind.InvalidConfiguration, "format transformer: dependency cycle among rules")
	}
	return order, nil
}
