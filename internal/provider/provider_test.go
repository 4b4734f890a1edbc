package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withRegistered(t *testing.T, names ...string) {
	t.Helper()
	saved := registry
	registry = map[string]Entry{}
	for _, n := range names {
		Register(Entry{Name: n})
	}
	t.Cleanup(func() { registry = saved })
}

func TestDispatchStdioIsAlwaysRecognized(t *testing.T) {
	withRegistered(t)
	name, ok := Dispatch("-", nil)
	assert.True(t, ok)
	assert.Equal(t, Stdio, name)
}

func TestDispatchExactPrefixTakesPriorityOverExtension(t *testing.T) {
	withRegistered(t, "csv")
	name, ok := Dispatch("csv:./data.jsonl", nil)
	assert.True(t, ok)
	assert.Equal(t, "csv", name)
}

func TestDispatchFallsBackToFileExtension(t *testing.T) {
	withRegistered(t, "jsonl")
	name, ok := Dispatch("/tmp/export.JSONL", nil)
	assert.True(t, ok)
	assert.Equal(t, "jsonl", name, "extension matching must be case-insensitive")
}

func TestDispatchFallsBackToHeuristicWhenNothingElseMatches(t *testing.T) {
	withRegistered(t)
	name, ok := Dispatch("postgres://localhost/db", func(s string) (string, bool) {
		if s == "postgres://localhost/db" {
			return "postgres", true
		}
		return "", false
	})
	assert.True(t, ok)
	assert.Equal(t, "postgres", name)
}

func TestDispatchUnresolvedWithNoHeuristicFails(t *testing.T) {
	withRegistered(t)
	_, ok := Dispatch("mystery-string", nil)
	assert.False(t, ok)
}

func TestDispatchUnregisteredPrefixFallsThroughToExtensionOrHeuristic(t *testing.T) {
	withRegistered(t, "jsonl")
	// "s3" isn't registered, so the ':' prefix rule must not match it,
	// leaving extension matching (none here) and the heuristic as the
	// only remaining paths.
	name, ok := Dispatch("s3:bucket/key", func(s string) (string, bool) {
		return "s3", true
	})
	assert.True(t, ok)
	assert.Equal(t, "s3", name)
}

func TestRegisterAndLookupRoundTrip(t *testing.T) {
	withRegistered(t)
	Register(Entry{Name: "generate", Capabilities: Capabilities{RequiresQuery: false}})

	e, ok := Lookup("generate")
	assert.True(t, ok)
	assert.Equal(t, "generate", e.Name)

	_, ok = Lookup("does-not-exist")
	assert.False(t, ok)
}

func TestNamesReflectsRegisteredProviders(t *testing.T) {
	withRegistered(t, "csv", "jsonl")
	names := Names()
	assert.ElementsMatch(t, []string{"csv", "jsonl"}, names)
}
