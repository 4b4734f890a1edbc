package reader

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// SQLReaderOptions configures a SQLReader.
type SQLReaderOptions struct {
	Query   string
	Unsafe  bool          // spec §4.B: override query screening, warn instead of fail
	Timeout time.Duration // honored as a per-query context timeout, spec §5
}

// SQLReader executes a validated query against a database/sql handle
// and streams rows as batches. It deliberately knows nothing about any
// particular driver's wire format (spec §1 excludes "per-provider
// driver code" from this spec's scope); it relies entirely on
// database/sql's generic *sql.Rows / ColumnType surface, the same
// contract the teacher's TargetQuerier/StagingQuerier interfaces
// (internal/types/types.go) are built against.
type SQLReader struct {
	db   *sql.DB
	opts SQLReaderOptions

	sc      schema.Schema
	rows    *sql.Rows
	mu      sync.Mutex
	lastErr error
	warning string
}

var _ Reader = (*SQLReader)(nil)

// NewSQLReader constructs a SQLReader. db is not closed by Dispose —
// the caller owns the connection pool's lifetime (it may be shared
// across readers), matching the teacher's pool-is-an-injection-point
// posture (internal/types/types.go's SourcePool/TargetPool).
func NewSQLReader(db *sql.DB, opts SQLReaderOptions) *SQLReader {
	return &SQLReader{db: db, opts: opts}
}

// Warning returns the query-safety warning recorded when Unsafe
// overrode a screening failure, or "" if none.
func (r *SQLReader) Warning() string { return r.warning }

func (r *SQLReader) Open(ctx context.Context) error {
	warning, err := ValidateQuery(r.opts.Query, r.opts.Unsafe)
	if err != nil {
		return err
	}
	r.warning = warning

	queryCtx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	rows, err := r.db.QueryContext(queryCtx, r.opts.Query)
	if err != nil {
		return errkind.Wrap(errkind.Unsupported, err, "executing query")
	}

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return errkind.Wrap(errkind.Corrupt, err, "reading column metadata")
	}
	cols := make([]schema.Column, len(colTypes))
	for i, ct := range colTypes {
		nullable, _ := ct.Nullable()
		cols[i] = schema.Column{
			Name:        ct.Name(),
			LogicalType: logicalTypeForSQL(ct.DatabaseTypeName()),
			Nullable:    nullable,
		}
	}
	sc, err := schema.Build(cols)
	if err != nil {
		rows.Close()
		return errkind.Wrap(errkind.InvalidConfiguration, err, "building SQL reader schema")
	}
	r.sc = sc
	r.rows = rows
	return nil
}

// logicalTypeForSQL maps the handful of database/sql generic type
// names drivers commonly report into a LogicalType. Anything
// unrecognized degrades to String, matching spec §3's string-carrier
// fallback for "typing happens at the sink".
func logicalTypeForSQL(name string) schema.LogicalType {
	switch name {
	case "BOOL", "BOOLEAN", "BIT":
		return schema.Bool
	case "INT", "INT4", "INTEGER", "SMALLINT", "TINYINT":
		return schema.Int32
	case "BIGINT", "INT8":
		return schema.Int64
	case "FLOAT4", "REAL":
		return schema.Float32
	case "FLOAT8", "DOUBLE":
		return schema.Float64
	case "NUMERIC", "DECIMAL":
		return schema.Decimal
	case "DATE":
		return schema.Date
	case "TIMESTAMP", "DATETIME", "DATETIME2":
		return schema.Timestamp
	case "TIMESTAMPTZ", "DATETIMEOFFSET":
		return schema.TimestampTz
	case "UUID", "UNIQUEIDENTIFIER":
		return schema.Guid
	case "BYTEA", "BLOB", "VARBINARY":
		return schema.Bytes
	default:
		return schema.String
	}
}

func (r *SQLReader) Schema() schema.Schema { return r.sc }

func (r *SQLReader) ReadBatches(ctx context.Context, batchSize int) <-chan schema.Batch {
	out := make(chan schema.Batch)
	go func() {
		defer close(out)
		n := r.sc.Len()
		batch := make([]schema.Row, 0, batchSize)
		flush := func() bool {
			if len(batch) == 0 {
				return true
			}
			select {
			case out <- schema.Batch{Schema: r.sc, Rows: batch}:
				batch = make([]schema.Row, 0, batchSize)
				return true
			case <-ctx.Done():
				return false
			}
		}

		dest := make([]any, n)
		scanTargets := make([]any, n)
		for i := range dest {
			scanTargets[i] = &dest[i]
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if !r.rows.Next() {
				if err := r.rows.Err(); err != nil {
					r.setErr(errkind.Wrap(errkind.Unsupported, err, "reading query results"))
					return
				}
				flush()
				return
			}
			if err := r.rows.Scan(scanTargets...); err != nil {
				r.setErr(errkind.Wrap(errkind.Corrupt, err, "scanning row"))
				return
			}
			row := make(schema.Row, n)
			for i, v := range dest {
				if v == nil {
					row[i] = schema.NullValue
				} else {
					row[i] = v
				}
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if !flush() {
					return
				}
			}
		}
	}()
	return out
}

func (r *SQLReader) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err
}

func (r *SQLReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *SQLReader) Dispose() error {
	if r.rows != nil {
		return r.rows.Close()
	}
	return nil
}
