package transform

import (
	"hash/fnv"
	"strings"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
	"github.com/streamctl/streamctl/internal/transform/fake"
)

// FakeColumn anonymizes SourceColumn's value by overwriting it with a
// deterministic generated substitute drawn from Registry, seeded by
// SourceColumn's own value (spec §4.E "Fake/Anonymization"): the same
// input value always anonymizes to the same output value.
type FakeColumn struct {
	SourceColumn string
	Registry     *fake.Registry

	colIdx int
}

var _ RowTransformer = (*FakeColumn)(nil)

func (f *FakeColumn) Initialize(in schema.Schema) (schema.Schema, error) {
	idx := schema.FindColumn(in, f.SourceColumn, false)
	if idx == -1 {
		return schema.Schema{}, errkind.Newf(errkind.InvalidConfiguration, "fake: column %q not found", f.SourceColumn)
	}
	f.colIdx = idx
	return in, nil
}

func (f *FakeColumn) Transform(row schema.Row) (schema.Row, error) {
	out := row.Clone()
	if schema.IsNull(row[f.colIdx]) {
		return out, nil
	}
	seed := seedOf(row[f.colIdx])
	out[f.colIdx] = f.Registry.Value(seed)
	return out, nil
}

// seedOf hashes v's invariant string form into the uint64 range
// Registry.Value expects.
func seedOf(v any) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(schema.FormatInvariant(v)))
	return h.Sum64()
}

// ParseFakeSpec parses a "COL:generator" configuration string (spec
// §4.E "Fake/Anonymization") into the column to anonymize and the
// dotted generator path (e.g. "internet.email"). A generator path that
// is not recognized by fake.NewRegistry is a caller-time configuration
// error, not this function's concern, so it is returned unvalidated.
func ParseFakeSpec(spec string) (column string, generator string, err error) {
	col, gen, ok := strings.Cut(spec, ":")
	if !ok {
		return "", "", errkind.Newf(errkind.InvalidConfiguration,
			"fake spec %q has no ':' separating column from generator", spec)
	}
	return col, gen, nil
}

// NewFakeColumn builds a FakeColumn from a "COL:generator" spec,
// resolving generator against fake's built-in registry.
func NewFakeColumn(spec string) (*FakeColumn, error) {
	col, gen, err := ParseFakeSpec(spec)
	if err != nil {
		return nil, err
	}
	reg, ok := fake.NewRegistry(fake.Kind(gen))
	if !ok {
		return nil, errkind.Newf(errkind.InvalidConfiguration, "fake: unknown generator %q", gen)
	}
	return &FakeColumn{SourceColumn: col, Registry: reg}, nil
}
