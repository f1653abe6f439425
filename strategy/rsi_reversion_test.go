package strategy

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/perps/ledger"
	"github.com/rustyeddy/perps/risk"
)

// rsiSeries is 35 candles: a long slide driving RSI below 30, a modest
// recovery that re-crosses the oversold band from below, then a rip that
// pushes RSI above 70.
func rsiSeries() []float64 {
	closes := []float64{100.0}
	p := 100.0
	for i := 0; i < 16; i++ {
		p -= 2.0
		closes = append(closes, p)
	}
	for i := 0; i < 8; i++ {
		p += 1.5
		closes = append(closes, p)
	}
	for i := 0; i < 10; i++ {
		p += 6.0
		closes = append(closes, p)
	}
	return closes
}

func TestRSIReversion_WarmupHolds(t *testing.T) {
	t.Parallel()

	s, err := NewRSIReversion(RSIReversionConfig{Name: "r", Symbol: "SOLUSDT", Period: 14, Oversold: 30, Overbought: 70})
	assert.NoError(t, err)

	closes := rsiSeries()
	for i := 1; i < 14+5; i++ {
		sig := s.Evaluate(closes[:i], nil)
		assert.Equal(t, ActionNone, sig.Action, "length %d is inside the warm-up window", i)
	}
}

func TestRSIReversion_EntryOnBandRecross(t *testing.T) {
	t.Parallel()

	s, err := NewRSIReversion(RSIReversionConfig{Name: "r", Symbol: "SOLUSDT", Period: 14, Oversold: 30, Overbought: 70})
	assert.NoError(t, err)

	closes := rsiSeries()

	// Deep oversold alone does not enter; the band has to be re-crossed
	// from below.
	sig := s.Evaluate(closes[:20], nil)
	assert.Equal(t, ActionNone, sig.Action)

	sig = s.Evaluate(closes[:24], nil)
	assert.Equal(t, ActionEnterLong, sig.Action)

	long := ledger.Long
	sig = s.Evaluate(closes[:29], &long)
	assert.Equal(t, ActionExit, sig.Action)
}

func TestNewRSIReversion_RejectsBadBands(t *testing.T) {
	t.Parallel()

	_, err := NewRSIReversion(RSIReversionConfig{Name: "r", Period: 14, Oversold: 70, Overbought: 30})
	assert.Error(t, err)
	_, err = NewRSIReversion(RSIReversionConfig{Name: "r", Period: 0, Oversold: 30, Overbought: 70})
	assert.Error(t, err)
}

func TestRSIReversion_LifecycleThroughDispatcher(t *testing.T) {
	t.Parallel()

	log := logrus.New()
	riskMgr := risk.New(risk.Limits{
		MaxOpenPositions: 3,
		MaxPositionPct:   0.20,
	}, 1000, "", log)
	led := ledger.New(ledger.Params{Capital: 1000, Leverage: 5, FeeRate: 0.0006}, riskMgr, nil, log)

	s, err := NewRSIReversion(RSIReversionConfig{Name: "SOL_RSI", Symbol: "SOLUSDT", Period: 14, Oversold: 30, Overbought: 70})
	assert.NoError(t, err)

	disp := NewDispatcher(Params{
		PositionPct:   0.20,
		StopLossPct:   0.50,
		TakeProfitPct: 2.00,
		Leverage:      5,
	}, []Strategy{s}, led, riskMgr, nil, nil, log)

	ctx := context.Background()
	closes := rsiSeries()
	for i := range closes {
		err := disp.OnCandleClose(ctx, "SOLUSDT", closes[:i+1], closes[i], true)
		assert.NoError(t, err)
	}

	trades := led.Trades()
	assert.Len(t, trades, 1)
	assert.Equal(t, ledger.Long, trades[0].Side)
	assert.Equal(t, ledger.SignalReversal, trades[0].Reason)
	assert.InDelta(t, 78.5, trades[0].EntryPrice, 1e-9)
	assert.InDelta(t, 104.0, trades[0].ExitPrice, 1e-9)
	assert.Greater(t, trades[0].PnL, 0.0)
	assert.Equal(t, 0, led.OpenCount())
}
