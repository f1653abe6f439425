// Package engine owns the event-processing loop's state: candle buffers, the
// ticker price cache, and the wiring between feed events, strategies, the
// ledger, and persistence. Everything here runs on a single goroutine; the
// feed delivers frames to it and periodic work happens as time checks between
// frames rather than on separate timers.
package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/perps/ledger"
	"github.com/rustyeddy/perps/market"
	"github.com/rustyeddy/perps/notify"
	"github.com/rustyeddy/perps/risk"
	"github.com/rustyeddy/perps/state"
	"github.com/rustyeddy/perps/strategy"
)

const (
	bufferSize      = 50
	saveInterval    = 5 * time.Minute
	summaryInterval = 6 * time.Hour
)

// KlineFetcher pulls historical candles, used once at startup to warm the
// buffers so strategies don't wait a day for enough closes to accumulate.
type KlineFetcher interface {
	FetchKlines(ctx context.Context, symbol string, limit int) ([]market.Candle, error)
}

// Engine applies market events to the portfolio.
type Engine struct {
	symbols    []string
	buffers    map[string]*market.Buffer
	prices     map[string]float64
	ledger     *ledger.Ledger
	risk       *risk.Manager
	dispatcher *strategy.Dispatcher
	store      *state.Store
	notifier   notify.Notifier
	log        *logrus.Logger

	lastSave    time.Time
	lastSummary time.Time
	now         func() time.Time
}

func New(symbols []string, l *ledger.Ledger, r *risk.Manager, d *strategy.Dispatcher,
	store *state.Store, n notify.Notifier, log *logrus.Logger) *Engine {
	if n == nil {
		n = notify.Nop{}
	}
	buffers := make(map[string]*market.Buffer, len(symbols))
	for _, s := range symbols {
		buffers[s] = market.NewBuffer(bufferSize)
	}
	e := &Engine{
		symbols:    symbols,
		buffers:    buffers,
		prices:     make(map[string]float64),
		ledger:     l,
		risk:       r,
		dispatcher: d,
		store:      store,
		notifier:   n,
		log:        log,
		now:        time.Now,
	}
	e.lastSave = e.now()
	e.lastSummary = e.now()
	return e
}

// Restore loads the last snapshot, if any, into the ledger and risk manager.
// A missing snapshot file means a fresh start and is not an error.
func (e *Engine) Restore() error {
	if e.store == nil {
		return nil
	}
	snap, err := e.store.Load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	e.ledger.Restore(snap.Capital, snap.Positions, snap.Trades)
	for sym, price := range snap.Prices {
		e.prices[sym] = price
	}
	// Keep the risk counters consistent with what was actually restored.
	e.risk.SetOpenPositions(e.ledger.OpenCount())
	e.log.WithFields(logrus.Fields{
		"capital":   snap.Capital,
		"positions": len(snap.Positions),
		"trades":    len(snap.Trades),
	}).Info("state restored")
	return nil
}

// WarmUp seeds each symbol's buffer with recent historical candles.
func (e *Engine) WarmUp(ctx context.Context, fetcher KlineFetcher) error {
	for _, sym := range e.symbols {
		candles, err := fetcher.FetchKlines(ctx, sym, bufferSize)
		if err != nil {
			return fmt.Errorf("warm up %s: %w", sym, err)
		}
		for _, c := range candles {
			e.buffers[sym].Update(c)
		}
		e.log.WithFields(logrus.Fields{
			"symbol":  sym,
			"candles": e.buffers[sym].Len(),
		}).Info("buffer warmed")
	}
	return nil
}

// HandleTicker records the latest price and sweeps stop-loss/take-profit
// levels for every open position on the symbol.
func (e *Engine) HandleTicker(ctx context.Context, symbol string, price float64) error {
	e.prices[symbol] = price

	for name, pos := range e.ledger.Positions() {
		if pos.Symbol != symbol {
			continue
		}
		trade, closed, err := e.ledger.CheckStopTake(name, price)
		if err != nil {
			return err
		}
		if closed {
			e.log.WithFields(logrus.Fields{
				"strategy": name,
				"reason":   trade.Reason,
				"pnl":      trade.PnL,
			}).Info("position closed")
			if err := e.notifier.Send(ctx, notify.FormatClose(trade, e.ledger.Capital())); err != nil {
				e.log.Warnf("notify close: %v", err)
			}
		}
	}
	return nil
}

// HandleKline folds the candle into the symbol's buffer. Strategies run only
// when the candle is confirmed closed; interim updates just keep the buffer
// current.
func (e *Engine) HandleKline(ctx context.Context, symbol string, c market.Candle) error {
	buf, ok := e.buffers[symbol]
	if !ok {
		return nil
	}
	buf.Update(c)

	if !c.Confirmed {
		return nil
	}
	e.log.WithFields(logrus.Fields{
		"symbol": symbol,
		"close":  c.Close,
	}).Debug("candle closed")

	price, hasTick := e.prices[symbol]
	return e.dispatcher.OnCandleClose(ctx, symbol, buf.Closes(), price, hasTick)
}

// Housekeeping runs the periodic side effects that are due: a state snapshot
// every five minutes and a summary notification every six hours. The feed
// calls this between frames.
func (e *Engine) Housekeeping(ctx context.Context) {
	now := e.now()
	if now.Sub(e.lastSave) > saveInterval {
		e.lastSave = now
		if err := e.Save(); err != nil {
			e.log.Errorf("save state: %v", err)
		}
	}
	if now.Sub(e.lastSummary) > summaryInterval {
		e.lastSummary = now
		if err := e.notifier.Send(ctx, e.Summary()); err != nil {
			e.log.Warnf("notify summary: %v", err)
		}
	}
}

// Save writes the current portfolio state to the snapshot file.
func (e *Engine) Save() error {
	if e.store == nil {
		return nil
	}
	prices := make(map[string]float64, len(e.prices))
	for sym, price := range e.prices {
		prices[sym] = price
	}
	return e.store.Save(state.Snapshot{
		Capital:   e.ledger.Capital(),
		Positions: e.ledger.Positions(),
		Trades:    e.ledger.Trades(),
		Prices:    prices,
		UpdatedAt: e.now(),
	})
}

// Summary renders the balance, total PnL, trade count, win rate, and open
// position count as a short status message.
func (e *Engine) Summary() string {
	trades := e.ledger.Trades()
	var totalPnL float64
	wins := 0
	for _, t := range trades {
		totalPnL += t.PnL
		if t.PnL > 0 {
			wins++
		}
	}
	winRate := 0.0
	if len(trades) > 0 {
		winRate = float64(wins) / float64(len(trades)) * 100
	}
	return fmt.Sprintf(
		"Balance: $%.2f | PnL: $%+.2f\nTrades: %d | Win rate: %.0f%%\nOpen: %d",
		e.ledger.Capital(), totalPnL, len(trades), winRate, e.ledger.OpenCount(),
	)
}

// Buffer exposes a symbol's candle buffer, used in tests and by the journal
// report command.
func (e *Engine) Buffer(symbol string) *market.Buffer { return e.buffers[symbol] }
