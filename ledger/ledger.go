package ledger

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/perps/journal"
	"github.com/rustyeddy/perps/pkg/id"
)

// Params are the accounting constants shared by every position.
type Params struct {
	Capital  float64 // starting capital, USD
	Leverage float64 // notional multiplier applied to margin
	FeeRate  float64 // taker fee rate, charged on notional at open and close
}

// RiskReporter receives the close-side risk bookkeeping. Open-side
// bookkeeping (RecordOpen) is the dispatcher's job, because approval and open
// happen there; closes can be tick-driven and bypass the dispatcher entirely,
// so the ledger reports them itself.
type RiskReporter interface {
	RecordClose()
	RecordTradeResult(pnl float64)
}

// Ledger tracks open positions by strategy, the closed-trade history, and the
// shared capital. Not safe for concurrent use; all calls must come from the
// event-processing goroutine.
type Ledger struct {
	params    Params
	capital   float64
	positions map[string]Position
	trades    []Trade
	risk      RiskReporter
	journal   journal.Journal // optional
	log       *logrus.Logger
	now       func() time.Time
}

func New(p Params, risk RiskReporter, j journal.Journal, log *logrus.Logger) *Ledger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Ledger{
		params:    p,
		capital:   p.Capital,
		positions: make(map[string]Position),
		risk:      risk,
		journal:   j,
		log:       log,
		now:       time.Now,
	}
}

// Open creates a position for the strategy. The entry fee
// (margin*leverage*feeRate) is debited from capital immediately. Stop-loss and
// take-profit prices are derived from the side-aware percentage offsets: for a
// long the stop sits below entry and the target above, inverted for a short.
func (l *Ledger) Open(strategy, symbol string, side Side, price, margin, slPct, tpPct float64) (Position, error) {
	if _, ok := l.positions[strategy]; ok {
		return Position{}, fmt.Errorf("%w: %s", ErrAlreadyOpen, strategy)
	}

	notional := margin * l.params.Leverage
	fee := notional * l.params.FeeRate

	var sl, tp float64
	if side == Long {
		sl = price * (1 - slPct)
		tp = price * (1 + tpPct)
	} else {
		sl = price * (1 + slPct)
		tp = price * (1 - tpPct)
	}

	pos := Position{
		Strategy:   strategy,
		Symbol:     symbol,
		Side:       side,
		EntryPrice: price,
		Quantity:   notional / price,
		Margin:     margin,
		StopLoss:   sl,
		TakeProfit: tp,
		OpenedAt:   l.now(),
		EntryFee:   fee,
	}

	l.capital -= fee
	l.positions[strategy] = pos
	return pos, nil
}

// CloseAtPrice realizes the strategy's position at exitPrice. Gross PnL is
// (exit-entry)/entry * margin * leverage for a long, mirrored for a short; a
// second fee charge is subtracted and the net credited to capital. The
// resulting Trade is appended to the history, written to the journal, and
// reported to the risk manager.
func (l *Ledger) CloseAtPrice(strategy string, exitPrice float64, reason Reason) (Trade, error) {
	pos, ok := l.positions[strategy]
	if !ok {
		return Trade{}, fmt.Errorf("%w: %s", ErrNoPosition, strategy)
	}

	notional := pos.Margin * l.params.Leverage
	fee := notional * l.params.FeeRate

	var gross float64
	if pos.Side == Long {
		gross = (exitPrice - pos.EntryPrice) / pos.EntryPrice * notional
	} else {
		gross = (pos.EntryPrice - exitPrice) / pos.EntryPrice * notional
	}
	net := gross - fee

	trade := Trade{
		ID:         id.New(),
		Strategy:   strategy,
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Margin:     pos.Margin,
		PnL:        net,
		PnLPct:     net / pos.Margin * 100,
		Reason:     reason,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   l.now(),
	}

	l.capital += net
	delete(l.positions, strategy)
	l.trades = append(l.trades, trade)

	if l.risk != nil {
		l.risk.RecordTradeResult(net)
		l.risk.RecordClose()
	}
	if l.journal != nil {
		if err := l.journal.RecordTrade(journal.TradeRecord{
			TradeID:     trade.ID,
			Strategy:    trade.Strategy,
			Symbol:      trade.Symbol,
			Side:        string(trade.Side),
			EntryPrice:  trade.EntryPrice,
			ExitPrice:   trade.ExitPrice,
			Margin:      trade.Margin,
			RealizedPnL: trade.PnL,
			PnLPct:      trade.PnLPct,
			Reason:      string(trade.Reason),
			OpenTime:    trade.OpenedAt,
			CloseTime:   trade.ClosedAt,
		}); err != nil {
			// A journal failure must not unwind the close: the in-memory
			// ledger stays authoritative and the trade stands.
			l.log.Warnf("journal trade %s: %v", trade.ID, err)
		}
	}

	return trade, nil
}

// CheckStopTake closes the strategy's position if price has crossed its
// stop-loss or take-profit level. The fill is the trigger level itself, not
// price. Stop-loss is checked first; with stop and target on opposite sides of
// entry both cannot trigger on one tick, so the ordering is a tie-break only.
func (l *Ledger) CheckStopTake(strategy string, price float64) (Trade, bool, error) {
	pos, ok := l.positions[strategy]
	if !ok {
		return Trade{}, false, nil
	}

	var exit float64
	var reason Reason

	if pos.Side == Long {
		switch {
		case price <= pos.StopLoss:
			exit, reason = pos.StopLoss, StopLoss
		case price >= pos.TakeProfit:
			exit, reason = pos.TakeProfit, TakeProfit
		default:
			return Trade{}, false, nil
		}
	} else {
		switch {
		case price >= pos.StopLoss:
			exit, reason = pos.StopLoss, StopLoss
		case price <= pos.TakeProfit:
			exit, reason = pos.TakeProfit, TakeProfit
		default:
			return Trade{}, false, nil
		}
	}

	trade, err := l.CloseAtPrice(strategy, exit, reason)
	if err != nil {
		return Trade{}, false, err
	}
	return trade, true, nil
}

// Capital returns the current available capital.
func (l *Ledger) Capital() float64 { return l.capital }

// Position returns the open position for the strategy, if any.
func (l *Ledger) Position(strategy string) (Position, bool) {
	p, ok := l.positions[strategy]
	return p, ok
}

// Positions returns a copy of the open-position map.
func (l *Ledger) Positions() map[string]Position {
	out := make(map[string]Position, len(l.positions))
	for k, v := range l.positions {
		out[k] = v
	}
	return out
}

// OpenCount returns the number of open positions.
func (l *Ledger) OpenCount() int { return len(l.positions) }

// Trades returns a copy of the closed-trade history, oldest first.
func (l *Ledger) Trades() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Restore replaces capital, positions, and trade history with previously
// snapshotted state. Used once at startup.
func (l *Ledger) Restore(capital float64, positions map[string]Position, trades []Trade) {
	l.capital = capital
	l.positions = make(map[string]Position, len(positions))
	for k, v := range positions {
		l.positions[k] = v
	}
	l.trades = append(l.trades[:0], trades...)
}
