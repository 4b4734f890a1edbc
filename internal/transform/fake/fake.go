// Package fake implements the spec §4.E "Fake/Anonymization"
// generator registry: deterministic, seed-keyed substitute values
// backed by syreclabs.com/go/faker (grounded in the flarco-sling
// manifest retrieved alongside this pack's other_examples/).
//
// Determinism is required so the same input value always anonymizes
// to the same output value within a run (stable joins across columns
// that reference the same fake-anonymized entity), without requiring a
// database of prior mappings. This is achieved by seeding a local
// math/rand source from an FNV-1a hash of the generator kind plus a
// page number, then drawing faker values through that seeded source,
// and caching whole pages of PageSize values so repeated look-ups for
// the same page never redraw the source.
package fake

import (
	"hash/fnv"
	"math/rand"
	"sync"

	"syreclabs.com/go/faker"
)

// PageSize is the number of deterministic values generated and cached
// together per (kind, page) key.
const PageSize = 1024

// MaxValues is the largest distinct value space a single generator
// kind will ever produce; seed values are folded into this range
// before paging.
const MaxValues = 65536

// Kind identifies a category of fake value to generate, matching
// spec §4.E's anonymization taxonomy.
type Kind string

const (
	FirstName Kind = "name.first_name"
	LastName  Kind = "name.last_name"
	FullName  Kind = "name.full_name"
	Email     Kind = "internet.email"
	Username  Kind = "internet.username"
	City      Kind = "address.city"
	Street    Kind = "address.street"
	ZipCode   Kind = "address.zip"
	Phone     Kind = "phone.number"
	Company   Kind = "company.name"
	IBAN      Kind = "finance.iban"
	CreditCard Kind = "finance.credit_card"
)

// generatorFuncs maps each Kind to a faker call. faker's package-level
// functions draw from faker.Random, which generatePage swaps for a
// seeded source during a page's draws; generation is serialized through
// fakerMu to keep a page's draws reproducible under concurrent callers.
var generatorFuncs = map[Kind]func() string{
	FirstName:  func() string { return faker.Name().FirstName() },
	LastName:   func() string { return faker.Name().LastName() },
	FullName:   func() string { return faker.Name().Name() },
	Email:      func() string { return faker.Internet().Email() },
	Username:   func() string { return faker.Internet().UserName() },
	City:       func() string { return faker.Address().City() },
	Street:     func() string { return faker.Address().StreetAddress() },
	ZipCode:    func() string { return faker.Address().ZipCode() },
	Phone:      func() string { return faker.PhoneNumber().CellPhone() },
	Company:    func() string { return faker.Company().Name() },
	IBAN:       func() string { return faker.Finance().Iban() },
	CreditCard: func() string { return faker.Business().CreditCardNumber() },
}

var fakerMu sync.Mutex

// Registry generates deterministic fake values for a single Kind,
// caching whole pages of PageSize so the same seed value always
// resolves to the same output within the registry's lifetime.
type Registry struct {
	kind Kind
	gen  func() string

	mu    sync.Mutex
	pages map[uint64][]string
}

// NewRegistry builds a Registry for kind. It returns false if kind is
// not recognized.
func NewRegistry(kind Kind) (*Registry, bool) {
	gen, ok := generatorFuncs[kind]
	if !ok {
		return nil, false
	}
	return &Registry{kind: kind, gen: gen, pages: make(map[uint64][]string)}, true
}

// Value returns the deterministic fake value for seedValue: seedValue
// is folded into [0, MaxValues) and resolved against a cached page of
// PageSize pre-generated values.
func (r *Registry) Value(seedValue uint64) string {
	folded := seedValue % MaxValues
	pageNum := folded / PageSize
	offset := folded % PageSize

	page := r.page(pageNum)
	return page[offset]
}

func (r *Registry) page(pageNum uint64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pages[pageNum]; ok {
		return p
	}

	seed := fnv1aSeed(string(r.kind), pageNum)
	p := r.generatePage(seed)
	r.pages[pageNum] = p
	return p
}

// generatePage draws PageSize values from a rand source seeded
// deterministically, swapping it in as faker's global source for the
// duration of the draw.
func (r *Registry) generatePage(seed int64) []string {
	fakerMu.Lock()
	defer fakerMu.Unlock()

	src := rand.New(rand.NewSource(seed))
	prevSource := faker.Random
	faker.Random = src
	defer func() { faker.Random = prevSource }()

	values := make([]string, PageSize)
	for i := range values {
		values[i] = r.gen()
	}
	return values
}

// fnv1aSeed hashes kind and pageNum into a deterministic int64 seed.
func fnv1aSeed(kind string, pageNum uint64) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(kind))
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(pageNum >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	return int64(h.Sum64())
}
