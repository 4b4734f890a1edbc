package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUppercases(t *testing.T) {
	d := New()
	assert.Equal(t, "ORDERS", d.Normalize("orders"))
}

func TestRequiresQuotingReservedWordIsCaseInsensitive(t *testing.T) {
	d := New()
	assert.True(t, d.RequiresQuoting("number"))
	assert.True(t, d.RequiresQuoting("NUMBER"))
}

func TestQuoteUsesDoubleQuotes(t *testing.T) {
	d := New()
	assert.Equal(t, `"ORDERS"`, d.Quote("ORDERS"))
}
