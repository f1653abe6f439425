package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	rec := sampleRecord("01JABCDEF0123456789", time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC))
	out := FormatTradeOrg(rec)

	assert.True(t, strings.HasPrefix(out, "** Trade: ETHUSDT LONG (01JABCDE)\n"))
	assert.Contains(t, out, ":TRADE_ID: 01JABCDEF0123456789\n")
	assert.Contains(t, out, ":STRATEGY: ETH_EMA\n")
	assert.Contains(t, out, ":ENTRY_PRICE: 2500.00\n")
	assert.Contains(t, out, ":EXIT_PRICE: 2650.00\n")
	assert.Contains(t, out, ":REALIZED_PNL: 59.40\n")
	assert.Contains(t, out, ":PNL_PCT: 29.7\n")
	assert.Contains(t, out, ":CLOSE_TIME: 2026-08-30T14:00:00Z\n")
	assert.Contains(t, out, ":END:\n")
	assert.Contains(t, out, "*** Thesis\n")
	assert.Contains(t, out, "*** Execution\n")
	assert.Contains(t, out, "*** Review\n")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	closed := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	out := FormatTradesOrg([]TradeRecord{
		sampleRecord("aaaa", closed),
		sampleRecord("bbbb", closed.Add(time.Hour)),
	})
	assert.Equal(t, 2, strings.Count(out, "** Trade:"))
	assert.Contains(t, out, "(aaaa)")
	assert.Contains(t, out, "(bbbb)")

	assert.Equal(t, "", FormatTradesOrg(nil))
}
