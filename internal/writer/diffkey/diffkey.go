// Package diffkey implements the client-side diff/upsert partitioning
// spec §4.C's Upsert strategy requires: a single existence round-trip
// against the target's primary key, a partition of the incoming batch
// into new vs. existing rows, and a "last occurrence wins" dedup of
// rows that repeat a key within the same batch.
//
// Grounded on the teacher's msort.UniqueByKey
// (internal/util/msort/msort.go): a backwards scan building a
// seen-key index and overwriting the recorded slot for any later
// occurrence, adapted here from mutation HLC order to batch row
// order (the source's own iteration order is the tie-breaker, spec
// §4.C Testable Property S6).
package diffkey

import (
	"strings"

	"github.com/streamctl/streamctl/internal/schema"
)

// CanonicalKey joins the values at keyIdx (the target's primary key
// column positions within row's schema) into a single comparable
// string, pipe-joined per spec §4.C's diff key contract, using
// FormatInvariant so types compare consistently regardless of the
// row's native representation.
func CanonicalKey(row schema.Row, keyIdx []int) string {
	var b strings.Builder
	for i, idx := range keyIdx {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(schema.FormatInvariant(row[idx]))
	}
	return b.String()
}

// DedupLastWins removes rows with duplicate canonical keys from rows,
// keeping the last occurrence in original order (spec §4.C Testable
// Property S6: "last occurrence wins"). The returned slice preserves
// the relative order of the surviving rows.
func DedupLastWins(rows []schema.Row, keyIdx []int) []schema.Row {
	seenIdx := make(map[string]int, len(rows))
	dest := len(rows)
	out := make([]schema.Row, len(rows))

	for src := len(rows) - 1; src >= 0; src-- {
		key := CanonicalKey(rows[src], keyIdx)
		if curIdx, found := seenIdx[key]; found {
			// A later (in original order) occurrence already claimed
			// this key; this earlier duplicate is discarded outright.
			_ = curIdx
			continue
		}
		dest--
		seenIdx[key] = dest
		out[dest] = rows[src]
	}
	return out[dest:]
}

// Partition splits rows into those whose canonical key already exists
// in the target (per exists, keyed the same way CanonicalKey builds
// its keys) and those that don't, preserving each side's relative
// order from rows. rows must already be deduplicated (DedupLastWins)
// before calling Partition, since the existence round-trip and the
// resulting statement batches are keyed 1:1 with the rows passed in.
func Partition(rows []schema.Row, keyIdx []int, exists map[string]bool) (newRows, existingRows []schema.Row) {
	for _, row := range rows {
		key := CanonicalKey(row, keyIdx)
		if exists[key] {
			existingRows = append(existingRows, row)
		} else {
			newRows = append(newRows, row)
		}
	}
	return newRows, existingRows
}
