// Package provider implements the connection-string dispatch and
// provider registry of spec §6 and Design Note "Dynamic dispatch over
// drivers": a string-keyed table of constructor functions and
// capability flags, generalized from the teacher's wire.NewSet-based
// Set of Provide* functions (internal/source/logical/provider.go) into
// a runtime registry the pipeline refers to only through this
// contract, never a concrete driver package.
package provider

import (
	"path/filepath"
	"strings"
)

// Capabilities records what a provider supports, so the pipeline can
// validate a requested write strategy or insert mode before ever
// dialing the sink.
type Capabilities struct {
	RequiresQuery          bool // readers: a query string is mandatory
	SupportsWriteStrategies bool // writers: all six strategies, not just Append
	SupportsInsertMode      bool // writers: native INSERT ... ON CONFLICT vs client-side diff
}

// Entry is one registered provider: its capability flags plus the
// constructor functions the CLI layer binds to. The constructors are
// declared as `any` here because reader/writer construction needs
// provider-specific option structs the registry itself is agnostic to;
// cmd/streamctl's binder is what downcasts them.
type Entry struct {
	Name         string
	Capabilities Capabilities
	NewReader    any
	NewWriter    any
}

var registry = map[string]Entry{}

// Register adds an Entry to the provider registry, keyed by its own
// Name. Called from each provider package's init().
func Register(e Entry) {
	registry[e.Name] = e
}

// Lookup returns the registered Entry for name, or ok == false.
func Lookup(name string) (Entry, bool) {
	e, ok := registry[name]
	return e, ok
}

// Names returns every registered provider name, for CLI help text.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}

// extensionProviders maps a recognized file extension to the provider
// name that handles it (spec §6 "otherwise by file-extension match").
var extensionProviders = map[string]string{
	".csv":      "csv",
	".parquet":  "parquet",
	".arrow":    "arrow",
	".arrowfile": "arrow",
	".jsonl":    "jsonl",
	".sha256":   "checksum",
	".duckdb":   "duckdb",
	".sqlite":   "sqlite",
	".sqlite3":  "sqlite",
}

// Stdio is the literal connection string designating standard
// input/output (spec §6).
const Stdio = "-"

// Dispatch resolves a connection string to a provider name following
// spec §6's three-step rule: (1) an exact "name:" prefix, (2) a
// recognized file extension, (3) a driver-supplied heuristic supplied
// by the caller as a fallback. heuristic may be nil, in which case an
// unresolved string returns ok == false.
func Dispatch(connectionString string, heuristic func(string) (string, bool)) (string, bool) {
	if connectionString == Stdio {
		return Stdio, true
	}

	if i := strings.IndexByte(connectionString, ':'); i > 0 {
		prefix := connectionString[:i]
		if _, ok := registry[prefix]; ok {
			return prefix, true
		}
	}

	ext := strings.ToLower(filepath.Ext(connectionString))
	if name, ok := extensionProviders[ext]; ok {
		return name, true
	}

	if heuristic != nil {
		return heuristic(connectionString)
	}
	return "", false
}
