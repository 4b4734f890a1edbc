package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/google/wire"

	"github.com/streamctl/streamctl/internal/dialect"
	_ "github.com/streamctl/streamctl/internal/dialect/mysql"
	_ "github.com/streamctl/streamctl/internal/dialect/oracle"
	_ "github.com/streamctl/streamctl/internal/dialect/postgres"
	_ "github.com/streamctl/streamctl/internal/dialect/sqlite"
	_ "github.com/streamctl/streamctl/internal/dialect/sqlserver"
	"github.com/streamctl/streamctl/internal/provider"
	"github.com/streamctl/streamctl/internal/reader"
	"github.com/streamctl/streamctl/internal/transform"
	"github.com/streamctl/streamctl/internal/writer"
)

// init registers the provider names this binary's ProvideReader/
// ProvideWriter switches recognize, so provider.Dispatch's step-1
// exact-prefix rule (spec §6) resolves "name:..." connection strings
// the same way its step-2 extension fallback already does for bare
// file paths.
func init() {
	for _, name := range []string{"generate", "csv", "jsonl", "checksum", "arrow"} {
		provider.Register(provider.Entry{Name: name})
	}
}

// Set is the wire.NewSet marker for this composition root, reproduced
// by hand in runPipeline (no `go generate`/wire codegen is ever run — this
// module never invokes the Go toolchain) per the teacher's
// Provide*(...) (*T, func(), error) shape
// (internal/source/logical/provider.go's Set/ProvideStagingPool).
var Set = wire.NewSet(
	ProvideReader,
	ProvideChain,
	ProvideWriter,
)

// ProvideReader dispatches cfg.Source to a concrete reader.Reader per
// spec §6's connection-string rules. SQL dispatch is intentionally
// absent: per-provider driver code is an excluded collaborator
// (spec §1), so this composition root wires only the file-based and
// synthetic providers that live entirely inside this module's scope.
func ProvideReader(cfg *Config) (reader.Reader, func(), error) {
	name, ok := provider.Dispatch(cfg.Source, generateHeuristic)
	if !ok {
		return nil, nil, errors.Errorf("cannot determine provider for source %q", redactConnectionString(cfg.Source))
	}

	switch name {
	case "generate":
		n, err := parseGenerateN(cfg.Source)
		if err != nil {
			return nil, nil, err
		}
		return &reader.GenerateReader{N: n}, func() {}, nil

	case provider.Stdio, "csv":
		f, err := openSource(cfg.Source)
		if err != nil {
			return nil, nil, err
		}
		r := reader.NewCSVReader(f, reader.DefaultCSVOptions())
		return r, func() { _ = f.Close() }, nil

	case "jsonl":
		f, err := openSource(cfg.Source)
		if err != nil {
			return nil, nil, err
		}
		r := reader.NewJSONLReader(f)
		return r, func() { _ = f.Close() }, nil

	default:
		return nil, nil, errors.Errorf("provider %q is not wired into this binary's source side", name)
	}
}

// ProvideChain builds the transformer chain. Transformer configuration
// is, like flag binding, a YAML-configuration-loading concern spec §1
// places outside this module's scope; this composition root wires an
// empty chain (a pure pass-through), leaving per-transformer wiring to
// whatever configuration loader a caller layers on top of
// internal/transform's public constructors.
func ProvideChain(cfg *Config) (*transform.Chain, func(), error) {
	return transform.NewChain(), func() {}, nil
}

// ProvideWriter dispatches cfg.Target to a concrete writer.Writer.
func ProvideWriter(cfg *Config) (writer.Writer, func(), error) {
	name, ok := provider.Dispatch(cfg.Target, nil)
	if !ok {
		return nil, nil, errors.Errorf("cannot determine provider for target %q", redactConnectionString(cfg.Target))
	}

	switch name {
	case provider.Stdio, "csv":
		f, err := createTarget(cfg.Target)
		if err != nil {
			return nil, nil, err
		}
		w := writer.NewCSVWriter(f, ',', true)
		return w, func() { _ = f.Close() }, nil

	case "jsonl":
		f, err := createTarget(cfg.Target)
		if err != nil {
			return nil, nil, err
		}
		w := writer.NewJSONLWriter(f)
		return w, func() { _ = f.Close() }, nil

	case "checksum":
		f, err := createTarget(cfg.Target)
		if err != nil {
			return nil, nil, err
		}
		w := writer.NewChecksumWriter(f)
		return w, func() { _ = f.Close() }, nil

	case "arrow":
		f, err := createTarget(cfg.Target)
		if err != nil {
			return nil, nil, err
		}
		w := writer.NewArrowWriter(f)
		return w, func() { _ = f.Close() }, nil

	default:
		return nil, nil, errors.Errorf("provider %q is not wired into this binary's target side", name)
	}
}

// ProvideDialect resolves cfg.Dialect, if set, to a registered Dialect
// for compatibility analysis and native-type mapping.
func ProvideDialect(cfg *Config) (dialect.Dialect, error) {
	if cfg.Dialect == "" {
		return nil, nil
	}
	d := dialect.Lookup(cfg.Dialect)
	if d == nil {
		return nil, errors.Errorf("unknown dialect %q (have: %v)", cfg.Dialect, dialect.Names())
	}
	return d, nil
}

func generateHeuristic(s string) (string, bool) {
	if strings.HasPrefix(s, "generate:") {
		return "generate", true
	}
	return "", false
}

func parseGenerateN(s string) (int64, error) {
	_, rest, ok := strings.Cut(s, ":")
	if !ok {
		return 0, errors.Errorf("malformed generate source %q, expected generate:N", s)
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing generate row count from %q", s)
	}
	return n, nil
}

func openSource(s string) (*os.File, error) {
	if s == provider.Stdio {
		return os.Stdin, nil
	}
	f, err := os.Open(s)
	if err != nil {
		return nil, errors.Wrapf(err, "opening source %q", s)
	}
	return f, nil
}

func createTarget(s string) (*os.File, error) {
	if s == provider.Stdio {
		return os.Stdout, nil
	}
	f, err := os.Create(s)
	if err != nil {
		return nil, errors.Wrapf(err, "creating target %q", s)
	}
	return f, nil
}
