// Package writer implements the spec §4.C write side: the Writer
// contract and the six write strategies a SQL target supports.
//
// The shape follows the teacher's Applier/Appliers pair
// (internal/types/types.go): a Writer is constructed once per target
// table and then accepts whole batches, the same way an Applier
// accepts a slice of Mutations. Unlike the teacher, a Writer here owns
// its own lifecycle (InspectTarget/Initialize/WriteBatch/Complete)
// rather than being handed a long-lived *TargetPool by a factory,
// since spec §4.C's writers are one-shot per pipeline run rather than
// a long-running CDC apply loop.
package writer

import (
	"context"
	"database/sql"

	"github.com/streamctl/streamctl/internal/dialect"
	"github.com/streamctl/streamctl/internal/schema"
)

// Strategy is the write strategy spec §4.C names.
type Strategy int

const (
	Append Strategy = iota
	Truncate
	Recreate
	DeleteThenInsert
	Upsert
	Ignore
)

func (s Strategy) String() string {
	switch s {
	case Append:
		return "Append"
	case Truncate:
		return "Truncate"
	case Recreate:
		return "Recreate"
	case DeleteThenInsert:
		return "DeleteThenInsert"
	case Upsert:
		return "Upsert"
	case Ignore:
		return "Ignore"
	default:
		return "Unknown"
	}
}

// Writer is the contract every sink (SQL or file-based) implements
// (spec §4.C): inspect what the target currently looks like, decide
// how to reconcile the incoming schema against it, stream batches in,
// then finalize.
type Writer interface {
	// InspectTarget reports the target's current schema, or
	// ok == false if the target does not exist yet.
	InspectTarget(ctx context.Context) (target schema.TargetSchema, ok bool, err error)

	// Initialize reconciles in against the target (creating or
	// altering it per Strategy) and returns the schema subsequent
	// WriteBatch calls must conform to.
	Initialize(ctx context.Context, in schema.Schema, compat schema.CompatibilityReport) (schema.Schema, error)

	// WriteBatch applies one batch using the configured Strategy.
	WriteBatch(ctx context.Context, batch schema.Batch) error

	// Complete finalizes the write (e.g. committing any buffered
	// transaction, closing a file footer).
	Complete(ctx context.Context) error

	// Dispose releases any resources WriteBatch/Initialize acquired.
	// It must be safe to call after a failed Initialize.
	Dispose() error
}

// StrategyAware is implemented by writers whose write strategy the
// caller needs to see ahead of Initialize — specifically, the engine
// must know when a Recreate is about to drop and rebuild the target,
// since the compatibility report it feeds into Initialize should then
// be computed as though the target did not exist yet (spec §4.C: a
// Recreate "rebuilds the target to match the source exactly", so a
// stale report computed against the about-to-be-dropped target must
// not block it). File-based writers don't implement this; they only
// ever behave like Append.
type StrategyAware interface {
	WriteStrategy() Strategy
}

// Options configures a SQLWriter.
type Options struct {
	Table        string
	Strategy     Strategy
	Dialect      dialect.Dialect
	PrimaryKey   []string // required for Upsert and DeleteThenInsert
	BatchCommit  bool     // not read by SQLWriter: every WriteBatch commits its own transaction
}
