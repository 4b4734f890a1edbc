package diffkey

import (
	"testing"

	"github.com/streamctl/streamctl/internal/schema"
	"github.com/stretchr/testify/assert"
)

// TestDedupLastWins exercises Scenario/Testable Property S6: when the
// same key repeats within a batch, the later occurrence (in original
// row order) wins and the earlier one is discarded.
func TestDedupLastWins(t *testing.T) {
	rows := []schema.Row{
		{int64(1), "first"},
		{int64(2), "only"},
		{int64(1), "second"},
		{int64(1), "third"},
	}
	out := DedupLastWins(rows, []int{0})

	assert.Len(t, out, 2)
	byKey := map[string]schema.Row{}
	for _, r := range out {
		byKey[CanonicalKey(r, []int{0})] = r
	}
	assert.Equal(t, "third", byKey[CanonicalKey(schema.Row{int64(1)}, []int{0})][1])
	assert.Equal(t, "only", byKey[CanonicalKey(schema.Row{int64(2)}, []int{0})][1])
}

func TestDedupLastWinsPreservesRelativeOrderOfSurvivors(t *testing.T) {
	rows := []schema.Row{
		{int64(1), "a"},
		{int64(2), "b"},
		{int64(1), "c"},
		{int64(3), "d"},
	}
	out := DedupLastWins(rows, []int{0})
	var got []string
	for _, r := range out {
		got = append(got, r[1].(string))
	}
	// Surviving occurrences keep the relative order of their own
	// position in rows: key 2's only row is at index 1 ("b"), key 1's
	// surviving row is at index 2 ("c"), key 3's at index 3 ("d").
	assert.Equal(t, []string{"b", "c", "d"}, got)
}

func TestCanonicalKeyUsesInvariantFormatting(t *testing.T) {
	k1 := CanonicalKey(schema.Row{int64(7)}, []int{0})
	k2 := CanonicalKey(schema.Row{int64(7)}, []int{0})
	assert.Equal(t, k1, k2)

	k3 := CanonicalKey(schema.Row{int64(7), "x"}, []int{0, 1})
	k4 := CanonicalKey(schema.Row{int64(7), "y"}, []int{0, 1})
	assert.NotEqual(t, k3, k4, "multi-column keys must include every key column")
}

func TestPartitionSplitsNewFromExisting(t *testing.T) {
	rows := []schema.Row{
		{int64(1)},
		{int64(2)},
		{int64(3)},
	}
	exists := map[string]bool{
		CanonicalKey(schema.Row{int64(2)}, []int{0}): true,
	}
	newRows, existingRows := Partition(rows, []int{0}, exists)
	assert.Len(t, newRows, 2)
	assert.Len(t, existingRows, 1)
	assert.Equal(t, int64(2), existingRows[0][0])
}
