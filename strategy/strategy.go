// Package strategy holds the signal generators and the dispatcher that turns
// their signals into ledger actions. Strategies are evaluated once per
// confirmed candle, never on raw ticks.
package strategy

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/perps/ledger"
)

// Action is what a strategy wants done after seeing a confirmed candle.
type Action int

const (
	ActionNone Action = iota
	ActionEnterLong
	ActionEnterShort
	ActionExit
)

// Signal pairs an action with the human-readable reason behind it.
type Signal struct {
	Action Action
	Reason string
}

// Strategy is the minimal interface a candle-close strategy must implement.
// Evaluate receives the full close history (oldest first) and the side of the
// strategy's open position, or nil when flat. It must be a pure function of
// its inputs.
type Strategy interface {
	Name() string
	Symbol() string
	Evaluate(closes []float64, openSide *ledger.Side) Signal
}

// ByName builds a strategy from its config kind. Supported kinds: ema-cross,
// rsi-reversion.
func ByName(kind, name, symbol string, params map[string]int) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "ema-cross", "emacross", "ema":
		cfg := EMACrossDefaults()
		cfg.Name = name
		cfg.Symbol = symbol
		if v, ok := params["fast"]; ok {
			cfg.Fast = v
		}
		if v, ok := params["slow"]; ok {
			cfg.Slow = v
		}
		return NewEMACross(cfg)

	case "rsi-reversion", "rsi":
		cfg := RSIReversionDefaults()
		cfg.Name = name
		cfg.Symbol = symbol
		if v, ok := params["period"]; ok {
			cfg.Period = v
		}
		if v, ok := params["oversold"]; ok {
			cfg.Oversold = float64(v)
		}
		if v, ok := params["overbought"]; ok {
			cfg.Overbought = float64(v)
		}
		return NewRSIReversion(cfg)

	default:
		return nil, fmt.Errorf("unknown strategy kind %q (supported: ema-cross, rsi-reversion)", kind)
	}
}
