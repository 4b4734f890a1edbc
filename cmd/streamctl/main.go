package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/streamctl/streamctl/internal/engine"
	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/resilience"
)

// Exit codes per spec §6.
const (
	exitSuccess            = 0
	exitConfigurationError = 1
	exitRuntimeError       = 2
	exitCancelledBySignal  = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := &Config{}
	flags := pflag.NewFlagSet("streamctl", pflag.ContinueOnError)
	cfg.Bind(flags)
	if err := flags.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigurationError
	}
	cfg.HasSeed = flags.Changed("seed")

	if err := cfg.Preflight(); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		return exitConfigurationError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := runPipeline(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
	}
	return code
}

func runPipeline(ctx context.Context, cfg *Config) (int, error) {
	rdr, cleanupReader, err := ProvideReader(cfg)
	if err != nil {
		return exitConfigurationError, err
	}
	defer cleanupReader()

	chain, cleanupChain, err := ProvideChain(cfg)
	if err != nil {
		return exitConfigurationError, err
	}
	defer cleanupChain()

	w, cleanupWriter, err := ProvideWriter(cfg)
	if err != nil {
		return exitConfigurationError, err
	}
	defer cleanupWriter()

	d, err := ProvideDialect(cfg)
	if err != nil {
		return exitConfigurationError, err
	}

	var seed *int64
	if cfg.HasSeed {
		s := cfg.Seed
		seed = &s
	}

	eng := engine.New(engine.Config{
		Reader:       rdr,
		Chain:        chain,
		Writer:       w,
		Dialect:      d,
		BatchSize:    cfg.BatchSize,
		SamplingRate: cfg.SamplingRate,
		Seed:         seed,
		Limit:        cfg.Limit,
		Retry: resilience.RetryPolicy{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.InitialDelay,
		},
	})

	written, err := eng.Run(ctx)
	if err != nil {
		return exitCodeFor(err), err
	}
	log.WithField("rowsWritten", written).Info("pipeline completed")
	return exitSuccess, nil
}

func exitCodeFor(err error) int {
	switch errkind.Of(err) {
	case errkind.Cancelled:
		return exitCancelledBySignal
	case errkind.InvalidArgument, errkind.InvalidConfiguration, errkind.SchemaIncompatible:
		return exitConfigurationError
	default:
		return exitRuntimeError
	}
}

// renderError renders the error kind and a one-line cause (spec §7).
func renderError(err error) string {
	return fmt.Sprintf("[%s] %s", errkind.Of(err), err.Error())
}

// redactConnectionString implements spec §7's secret-visibility rule
// for any connection string embedded in a user-facing message: a
// keyring:// reference is shown verbatim (it names a secret, it isn't
// one), everything else is truncated to 10 characters followed by
// "...".
func redactConnectionString(s string) string {
	if strings.HasPrefix(s, "keyring://") {
		return s
	}
	if len(s) <= 10 {
		return s
	}
	return s[:10] + "..."
}
