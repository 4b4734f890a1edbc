package writer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"github.com/streamctl/streamctl/internal/errkind"
	"github.com/streamctl/streamctl/internal/schema"
)

// ChecksumWriter computes the order-sensitive hash chain spec §4.C
// requires for verifying a run's output independent of the sink
// format: H_{n+1} = SHA-256(H_n || SHA-256(canonicalize(row_n))),
// starting from H_0 = 32 zero bytes. The running chain value is
// written to dst as a single hex line by Complete.
type ChecksumWriter struct {
	dst io.WriteCloser

	schema schema.Schema
	chain  [32]byte
}

var _ Writer = (*ChecksumWriter)(nil)

// NewChecksumWriter constructs a ChecksumWriter over dst, closed by
// Dispose. dst typically backs a sibling `.sha256` file alongside the
// run's primary sink output.
func NewChecksumWriter(dst io.WriteCloser) *ChecksumWriter {
	return &ChecksumWriter{dst: dst}
}

func (w *ChecksumWriter) InspectTarget(ctx context.Context) (schema.TargetSchema, bool, error) {
	return schema.TargetSchema{}, false, nil
}

func (w *ChecksumWriter) Initialize(ctx context.Context, in schema.Schema, compat schema.CompatibilityReport) (schema.Schema, error) {
	w.schema = in
	w.chain = [32]byte{}
	return in, nil
}

func (w *ChecksumWriter) WriteBatch(ctx context.Context, batch schema.Batch) error {
	for _, row := range batch.Rows {
		rowHash := sha256.Sum256([]byte(canonicalizeRow(row)))
		combined := make([]byte, 0, 64)
		combined = append(combined, w.chain[:]...)
		combined = append(combined, rowHash[:]...)
		w.chain = sha256.Sum256(combined)
	}
	return nil
}

// canonicalizeRow renders a row as a stable, type-invariant string:
// each value via FormatInvariant, pipe-joined per spec §6's
// canonicalize contract (v1|v2|...).
func canonicalizeRow(row schema.Row) string {
	var b strings.Builder
	for i, v := range row {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(schema.FormatInvariant(v))
	}
	return b.String()
}

func (w *ChecksumWriter) Complete(ctx context.Context) error {
	line := hex.EncodeToString(w.chain[:]) + "\n"
	if _, err := io.WriteString(w.dst, line); err != nil {
		return errkind.Wrap(errkind.Unsupported, err, "writing checksum")
	}
	return nil
}

func (w *ChecksumWriter) Dispose() error {
	return w.dst.Close()
}
