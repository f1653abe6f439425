// Package backtest replays historical candles through the same dispatcher,
// ledger, and risk components the live engine uses, one strategy at a time,
// and reports aggregate performance. The replay is blocking and
// single-threaded with no network, so runs are deterministic.
package backtest

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/perps/ledger"
	"github.com/rustyeddy/perps/market"
	"github.com/rustyeddy/perps/risk"
	"github.com/rustyeddy/perps/strategy"
)

// Options are the account and sizing parameters for a replay.
type Options struct {
	Capital          float64
	Leverage         float64
	FeeRate          float64
	PositionPct      float64
	StopLossPct      float64
	TakeProfitPct    float64
	MaxPositionPct   float64
	MaxOpenPositions int
}

// Result is the aggregate outcome of replaying one strategy.
type Result struct {
	Strategy     string
	Symbol       string
	Trades       int
	Wins         int
	WinRate      float64
	TotalPnL     float64
	FinalBalance float64
}

func (r Result) String() string {
	return fmt.Sprintf("%s on %s: %d trades, %.0f%% WR, PnL: $%+.2f, final: $%.2f",
		r.Strategy, r.Symbol, r.Trades, r.WinRate, r.TotalPnL, r.FinalBalance)
}

// Run replays the candle sequence (oldest first) through a fresh ledger and
// dispatcher carrying only the given strategy. Stop/take sweeps use each
// candle's close, the same price a live tick would deliver at that moment.
// Any position still open when the data ends is closed at the final price so
// the accounting is complete.
//
// The daily loss limit is intentionally disabled: replaying months of candles
// in one wall-clock day would pin every loss to the same calendar date and
// halt the run at the first bad streak.
func Run(ctx context.Context, strat strategy.Strategy, candles []market.Candle, opts Options, log *logrus.Logger) (Result, error) {
	if len(candles) == 0 {
		return Result{}, fmt.Errorf("backtest %s: no candles", strat.Name())
	}

	riskMgr := risk.New(risk.Limits{
		MaxOpenPositions:  opts.MaxOpenPositions,
		MaxPositionPct:    opts.MaxPositionPct,
		DailyLossLimitPct: 0,
	}, opts.Capital, "", log)

	led := ledger.New(ledger.Params{
		Capital:  opts.Capital,
		Leverage: opts.Leverage,
		FeeRate:  opts.FeeRate,
	}, riskMgr, nil, log)

	disp := strategy.NewDispatcher(strategy.Params{
		PositionPct:   opts.PositionPct,
		StopLossPct:   opts.StopLossPct,
		TakeProfitPct: opts.TakeProfitPct,
		Leverage:      opts.Leverage,
	}, []strategy.Strategy{strat}, led, riskMgr, nil, nil, log)

	closes := make([]float64, 0, len(candles))
	for _, c := range candles {
		closes = append(closes, c.Close)
		if err := disp.OnCandleClose(ctx, strat.Symbol(), closes, c.Close, true); err != nil {
			return Result{}, fmt.Errorf("backtest %s: %w", strat.Name(), err)
		}
	}

	if _, open := led.Position(strat.Name()); open {
		last := closes[len(closes)-1]
		if _, err := led.CloseAtPrice(strat.Name(), last, ledger.EndOfReplay); err != nil {
			return Result{}, fmt.Errorf("backtest %s: close at end: %w", strat.Name(), err)
		}
	}

	return summarize(strat, led, opts.Capital), nil
}

func summarize(strat strategy.Strategy, led *ledger.Ledger, capital float64) Result {
	trades := led.Trades()
	res := Result{
		Strategy:     describe(strat),
		Symbol:       strat.Symbol(),
		Trades:       len(trades),
		FinalBalance: led.Capital(),
	}
	for _, t := range trades {
		res.TotalPnL += t.PnL
		if t.PnL > 0 {
			res.Wins++
		}
	}
	if res.Trades > 0 {
		res.WinRate = float64(res.Wins) / float64(res.Trades) * 100
	}
	return res
}

// describe renders the strategy with its parameters, e.g. "EMA(12/26)".
func describe(strat strategy.Strategy) string {
	switch s := strat.(type) {
	case *strategy.EMACross:
		return fmt.Sprintf("EMA(%d/%d)", s.Fast, s.Slow)
	case *strategy.RSIReversion:
		return fmt.Sprintf("RSI(%d,%.0f/%.0f)", s.Period, s.Oversold, s.Overbought)
	default:
		return strings.ToUpper(strat.Name())
	}
}
