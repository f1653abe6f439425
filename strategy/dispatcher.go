package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/perps/ledger"
	"github.com/rustyeddy/perps/notify"
)

// OrderPlacer submits real orders before the ledger records them. In paper
// mode the dispatcher runs without one and fills are simulated at the candle
// close price.
type OrderPlacer interface {
	PlaceEntry(ctx context.Context, symbol string, side ledger.Side, qty, stopLoss, takeProfit float64) error
	PlaceExit(ctx context.Context, symbol string, side ledger.Side, qty float64) error
}

// RiskApprover gates entries. Approval is advisory; the dispatcher records
// the open afterwards to keep the approver's counters consistent. MarginCap
// bounds how much margin one position may carry, so sizing from a grown
// balance cannot outrun the approver's own size check.
type RiskApprover interface {
	CanOpen(sizeUSD float64) (bool, string)
	MarginCap() float64
	RecordOpen()
}

// Params are the sizing knobs every strategy shares.
type Params struct {
	PositionPct   float64 // margin as a fraction of current capital
	StopLossPct   float64
	TakeProfitPct float64
	Leverage      float64
}

// Dispatcher routes confirmed candles to the strategies bound to their symbol
// and turns the resulting signals into ledger actions, gated by the risk
// manager. All methods run on the event-processing goroutine.
type Dispatcher struct {
	params     Params
	strategies []Strategy
	ledger     *ledger.Ledger
	risk       RiskApprover
	placer     OrderPlacer // nil = paper mode
	notifier   notify.Notifier
	log        *logrus.Logger
}

func NewDispatcher(params Params, strats []Strategy, l *ledger.Ledger, r RiskApprover,
	placer OrderPlacer, n notify.Notifier, log *logrus.Logger) *Dispatcher {
	if n == nil {
		n = notify.Nop{}
	}
	return &Dispatcher{
		params:     params,
		strategies: strats,
		ledger:     l,
		risk:       r,
		placer:     placer,
		notifier:   n,
		log:        log,
	}
}

// Strategies returns the configured strategies.
func (d *Dispatcher) Strategies() []Strategy { return d.strategies }

// OnCandleClose evaluates every strategy bound to symbol against the close
// history. lastTick is the most recent ticker price for the symbol, used for
// a stop/take sweep before signals run; pass hasTick=false when no ticker has
// arrived yet.
func (d *Dispatcher) OnCandleClose(ctx context.Context, symbol string, closes []float64, lastTick float64, hasTick bool) error {
	if len(closes) == 0 {
		return nil
	}
	price := closes[len(closes)-1]

	for _, s := range d.strategies {
		if s.Symbol() != symbol {
			continue
		}

		// The candle close can lag the ticker stream; sweep stops against the
		// freshest price before acting on the stale close.
		if hasTick {
			if trade, closed, err := d.ledger.CheckStopTake(s.Name(), lastTick); err != nil {
				return err
			} else if closed {
				d.announceClose(ctx, trade)
			}
		}

		var openSide *ledger.Side
		if pos, ok := d.ledger.Position(s.Name()); ok {
			side := pos.Side
			openSide = &side
		}

		sig := s.Evaluate(closes, openSide)
		switch sig.Action {
		case ActionExit:
			if err := d.exit(ctx, s.Name(), price, sig.Reason); err != nil {
				return err
			}
		case ActionEnterLong:
			if err := d.enter(ctx, s, ledger.Long, price, sig.Reason); err != nil {
				return err
			}
		case ActionEnterShort:
			if err := d.enter(ctx, s, ledger.Short, price, sig.Reason); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Dispatcher) enter(ctx context.Context, s Strategy, side ledger.Side, price float64, reason string) error {
	// Size from the running balance, but never past the per-position cap;
	// a profitable account pins at the cap instead of tripping the size
	// check on every signal.
	margin := d.ledger.Capital() * d.params.PositionPct
	if limit := d.risk.MarginCap(); margin > limit {
		margin = limit
	}

	if ok, why := d.risk.CanOpen(margin); !ok {
		d.log.WithFields(logrus.Fields{
			"strategy": s.Name(),
			"symbol":   s.Symbol(),
			"side":     side,
		}).Warnf("entry blocked: %s", why)
		return nil
	}

	if d.placer != nil {
		qty := margin * d.params.Leverage / price
		var sl, tp float64
		if side == ledger.Long {
			sl = price * (1 - d.params.StopLossPct)
			tp = price * (1 + d.params.TakeProfitPct)
		} else {
			sl = price * (1 + d.params.StopLossPct)
			tp = price * (1 - d.params.TakeProfitPct)
		}
		if err := d.placer.PlaceEntry(ctx, s.Symbol(), side, qty, sl, tp); err != nil {
			return fmt.Errorf("place entry %s %s: %w", s.Name(), side, err)
		}
	}

	pos, err := d.ledger.Open(s.Name(), s.Symbol(), side, price, margin,
		d.params.StopLossPct, d.params.TakeProfitPct)
	if err != nil {
		return err
	}
	d.risk.RecordOpen()

	d.log.WithFields(logrus.Fields{
		"strategy": s.Name(),
		"symbol":   s.Symbol(),
		"side":     side,
		"price":    price,
		"margin":   margin,
		"reason":   reason,
	}).Info("position opened")

	if err := d.notifier.Send(ctx, notify.FormatOpen(pos, d.params.Leverage)); err != nil {
		d.log.Warnf("notify open: %v", err)
	}
	return nil
}

func (d *Dispatcher) exit(ctx context.Context, name string, price float64, reason string) error {
	if d.placer != nil {
		pos, ok := d.ledger.Position(name)
		if ok {
			if err := d.placer.PlaceExit(ctx, pos.Symbol, pos.Side, pos.Quantity); err != nil {
				return fmt.Errorf("place exit %s: %w", name, err)
			}
		}
	}

	trade, err := d.ledger.CloseAtPrice(name, price, ledger.SignalReversal)
	if err != nil {
		if errors.Is(err, ledger.ErrNoPosition) {
			return nil
		}
		return err
	}

	d.log.WithFields(logrus.Fields{
		"strategy": name,
		"pnl":      trade.PnL,
		"reason":   reason,
	}).Info("position closed on signal")

	d.announceClose(ctx, trade)
	return nil
}

func (d *Dispatcher) announceClose(ctx context.Context, trade ledger.Trade) {
	if err := d.notifier.Send(ctx, notify.FormatClose(trade, d.ledger.Capital())); err != nil {
		d.log.Warnf("notify close: %v", err)
	}
}
