package ledger

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type recordingRisk struct {
	opens  int
	closes int
	pnls   []float64
}

func (r *recordingRisk) RecordClose()                { r.closes++ }
func (r *recordingRisk) RecordTradeResult(p float64) { r.pnls = append(r.pnls, p) }

func newTestLedger(t *testing.T, capital float64) (*Ledger, *recordingRisk) {
	t.Helper()
	risk := &recordingRisk{}
	l := New(Params{Capital: capital, Leverage: 5, FeeRate: 0.0006}, risk, nil, logrus.New())
	l.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	return l, risk
}

func TestOpen_ComputesLevels(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t, 1000)
	pos, err := l.Open("ETH_EMA", "ETHUSDT", Long, 100, 200, 0.03, 0.06)
	assert.NoError(t, err)

	assert.Equal(t, Long, pos.Side)
	assert.InDelta(t, 97.0, pos.StopLoss, 1e-9)
	assert.InDelta(t, 106.0, pos.TakeProfit, 1e-9)
	assert.InDelta(t, 10.0, pos.Quantity, 1e-9) // 200*5/100
	assert.InDelta(t, 0.6, pos.EntryFee, 1e-9)  // 200*5*0.0006
	assert.InDelta(t, 999.4, l.Capital(), 1e-9)
}

func TestOpen_ShortInvertsLevels(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t, 1000)
	pos, err := l.Open("SOL_RSI", "SOLUSDT", Short, 100, 200, 0.03, 0.06)
	assert.NoError(t, err)

	assert.InDelta(t, 103.0, pos.StopLoss, 1e-9)
	assert.InDelta(t, 94.0, pos.TakeProfit, 1e-9)
}

func TestOpen_AlreadyOpen(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t, 1000)
	_, err := l.Open("ETH_EMA", "ETHUSDT", Long, 100, 200, 0.03, 0.06)
	assert.NoError(t, err)

	_, err = l.Open("ETH_EMA", "ETHUSDT", Short, 100, 200, 0.03, 0.06)
	assert.ErrorIs(t, err, ErrAlreadyOpen)
	assert.Equal(t, 1, l.OpenCount())
}

func TestClose_NoPosition(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t, 1000)
	_, err := l.CloseAtPrice("ETH_EMA", 100, SignalReversal)
	assert.ErrorIs(t, err, ErrNoPosition)
}

// Round-trip accounting law: capital after close equals capital before open
// plus gross PnL minus both fee charges.
func TestClose_AccountingLaw(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		side  Side
		entry float64
		exit  float64
	}{
		{"long win", Long, 100, 110},
		{"long loss", Long, 100, 92},
		{"short win", Short, 100, 90},
		{"short loss", Short, 100, 108},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, risk := newTestLedger(t, 1000)
			_, err := l.Open("s", "ETHUSDT", tt.side, tt.entry, 200, 0.5, 1.0)
			assert.NoError(t, err)

			trade, err := l.CloseAtPrice("s", tt.exit, SignalReversal)
			assert.NoError(t, err)

			notional := 200.0 * 5
			fee := notional * 0.0006
			gross := (tt.exit - tt.entry) / tt.entry * notional
			if tt.side == Short {
				gross = -gross
			}
			net := gross - fee

			assert.InDelta(t, net, trade.PnL, 1e-9)
			assert.InDelta(t, net/200*100, trade.PnLPct, 1e-9)
			assert.InDelta(t, 1000+gross-2*fee, l.Capital(), 1e-9)

			assert.Equal(t, 0, l.OpenCount())
			assert.Len(t, l.Trades(), 1)
			assert.Equal(t, 1, risk.closes)
			assert.Equal(t, []float64{net}, risk.pnls)
		})
	}
}

func TestCheckStopTake_FillsAtTriggerLevel(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t, 1000)
	_, err := l.Open("s", "ETHUSDT", Long, 100, 200, 0.03, 0.06)
	assert.NoError(t, err)

	// Price gaps through the stop; the fill is the stop price, not the tick.
	trade, closed, err := l.CheckStopTake("s", 95.0)
	assert.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, StopLoss, trade.Reason)
	assert.InDelta(t, 97.0, trade.ExitPrice, 1e-9)
	assert.InDelta(t, (97.0-100)/100*1000-0.6, trade.PnL, 1e-9)
	assert.InDelta(t, 968.8, l.Capital(), 1e-9)
}

func TestCheckStopTake_TakeProfit(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t, 1000)
	_, err := l.Open("s", "ETHUSDT", Long, 100, 200, 0.03, 0.06)
	assert.NoError(t, err)

	trade, closed, err := l.CheckStopTake("s", 107.0)
	assert.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, TakeProfit, trade.Reason)
	assert.InDelta(t, 106.0, trade.ExitPrice, 1e-9)
}

func TestCheckStopTake_ShortSide(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t, 1000)
	_, err := l.Open("s", "SOLUSDT", Short, 100, 200, 0.03, 0.06)
	assert.NoError(t, err)

	// A rising price stops out a short.
	trade, closed, err := l.CheckStopTake("s", 104.0)
	assert.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, StopLoss, trade.Reason)
	assert.InDelta(t, 103.0, trade.ExitPrice, 1e-9)
}

func TestCheckStopTake_NoTrigger(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t, 1000)
	_, err := l.Open("s", "ETHUSDT", Long, 100, 200, 0.03, 0.06)
	assert.NoError(t, err)

	_, closed, err := l.CheckStopTake("s", 101.0)
	assert.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, 1, l.OpenCount())
}

func TestCheckStopTake_FlatIsNoop(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t, 1000)
	_, closed, err := l.CheckStopTake("s", 50.0)
	assert.NoError(t, err)
	assert.False(t, closed)
}

// Property: under a random open/close sequence, each strategy holds at most
// one position at a time, and every close appends exactly one trade.
func TestLedger_SinglePositionInvariant(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t, 10000)
	rng := rand.New(rand.NewSource(42))
	names := []string{"a", "b", "c"}
	open := map[string]bool{}
	wantTrades := 0

	for i := 0; i < 500; i++ {
		name := names[rng.Intn(len(names))]
		price := 50 + rng.Float64()*100

		if rng.Intn(2) == 0 {
			_, err := l.Open(name, "ETHUSDT", Long, price, 100, 0.03, 0.06)
			if open[name] {
				assert.ErrorIs(t, err, ErrAlreadyOpen)
			} else {
				assert.NoError(t, err)
				open[name] = true
			}
		} else {
			_, err := l.CloseAtPrice(name, price, SignalReversal)
			if open[name] {
				assert.NoError(t, err)
				open[name] = false
				wantTrades++
			} else {
				assert.ErrorIs(t, err, ErrNoPosition)
			}
		}

		count := 0
		for _, v := range open {
			if v {
				count++
			}
		}
		assert.Equal(t, count, l.OpenCount(), "iteration %d", i)
	}

	assert.Len(t, l.Trades(), wantTrades)
}

func TestRestore(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t, 1000)
	positions := map[string]Position{
		"s": {Strategy: "s", Symbol: "ETHUSDT", Side: Long, EntryPrice: 100, Margin: 200},
	}
	trades := []Trade{{ID: "t1", Strategy: "s", PnL: 12.5}}

	l.Restore(850.5, positions, trades)

	assert.InDelta(t, 850.5, l.Capital(), 1e-9)
	assert.Equal(t, 1, l.OpenCount())
	assert.Equal(t, trades, l.Trades())

	pos, ok := l.Position("s")
	assert.True(t, ok)
	assert.Equal(t, positions["s"], pos)
}

func TestTrades_AppendOnly(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t, 1000)
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("s%d", i)
		_, err := l.Open(name, "ETHUSDT", Long, 100, 100, 0.03, 0.06)
		assert.NoError(t, err)
		_, err = l.CloseAtPrice(name, 101, SignalReversal)
		assert.NoError(t, err)
	}

	trades := l.Trades()
	assert.Len(t, trades, 3)
	for i, tr := range trades {
		assert.Equal(t, fmt.Sprintf("s%d", i), tr.Strategy)
		assert.NotEmpty(t, tr.ID)
	}
}
