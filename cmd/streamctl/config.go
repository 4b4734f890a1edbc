// Command streamctl is the composition root: it binds flags, builds a
// Reader/Chain/Writer, and runs them through the pipeline engine.
//
// Per spec §1's exclusions ("command-line parsing and flag binding;
// YAML configuration loading... are external collaborators, spec only
// their interfaces"), this package is deliberately thin: it exercises
// the Bind/Preflight shape the teacher's server/config.go establishes
// (internal/source/server/config.go), without trying to be a complete
// flag surface for every transformer and provider option spec.md
// leaves to configuration loading outside this module's scope.
package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/streamctl/streamctl/internal/writer"
)

// Config is the user-visible configuration for one pipeline run.
type Config struct {
	Source string
	Target string
	Query  string
	Unsafe bool

	Strategy   string
	PrimaryKey []string
	Dialect    string

	BatchSize    int
	SamplingRate float64
	Seed         int64
	HasSeed      bool
	Limit        int64

	MaxAttempts  int
	InitialDelay time.Duration
}

// Bind registers flags onto flags, mirroring the teacher's
// server/config.go Bind method shape.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.StringVar(&c.Source, "source", "", "source connection string (provider:..., a file path, generate:N, or - for stdin)")
	flags.StringVar(&c.Target, "target", "", "target connection string (provider:..., a file path, or - for stdout)")
	flags.StringVar(&c.Query, "query", "", "query text for SQL sources")
	flags.BoolVar(&c.Unsafe, "unsafe-query", false, "allow a query that fails the safety screen, recording a warning instead")

	flags.StringVar(&c.Strategy, "strategy", "append", "write strategy: append|truncate|recreate|delete-then-insert|upsert|ignore")
	flags.StringSliceVar(&c.PrimaryKey, "primary-key", nil, "primary key column names, required for upsert/ignore")
	flags.StringVar(&c.Dialect, "dialect", "", "target dialect: postgres|mysql|sqlite|oracle|sqlserver")

	flags.IntVar(&c.BatchSize, "batch-size", 50_000, "rows per batch")
	flags.Float64Var(&c.SamplingRate, "sampling-rate", 1, "Bernoulli sub-sampling rate in (0,1]")
	flags.Int64Var(&c.Seed, "seed", 0, "PRNG seed for sub-sampling; unset means non-deterministic")
	flags.Int64Var(&c.Limit, "limit", 0, "maximum rows to read; 0 means unlimited")

	flags.IntVar(&c.MaxAttempts, "max-attempts", 3, "maximum write-batch attempts")
	flags.DurationVar(&c.InitialDelay, "initial-delay", time.Second, "initial retry backoff delay")
}

// Preflight validates flag combinations that pflag itself cannot
// express, mirroring the teacher's Config.Preflight style
// (server/config.go).
func (c *Config) Preflight() error {
	if c.Source == "" {
		return errors.New("source unset")
	}
	if c.Target == "" {
		return errors.New("target unset")
	}
	if c.SamplingRate <= 0 || c.SamplingRate > 1 {
		return errors.Errorf("sampling-rate must be in (0,1], got %v", c.SamplingRate)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch-size must be positive, got %d", c.BatchSize)
	}
	if c.Limit < 0 {
		return errors.Errorf("limit must be >= 0, got %d", c.Limit)
	}
	if _, err := c.writeStrategy(); err != nil {
		return err
	}
	return nil
}

func (c *Config) writeStrategy() (writer.Strategy, error) {
	switch c.Strategy {
	case "append", "":
		return writer.Append, nil
	case "truncate":
		return writer.Truncate, nil
	case "recreate":
		return writer.Recreate, nil
	case "delete-then-insert":
		return writer.DeleteThenInsert, nil
	case "upsert":
		return writer.Upsert, nil
	case "ignore":
		return writer.Ignore, nil
	default:
		return 0, errors.Errorf("unknown write strategy %q", c.Strategy)
	}
}
