package strategy

import (
	"fmt"

	"github.com/rustyeddy/perps/indicators"
	"github.com/rustyeddy/perps/ledger"
)

// RSIReversion is a mean-reversion strategy: it enters long when RSI crosses
// back up through the oversold line, enters short when it crosses back down
// through the overbought line, and exits when RSI reaches the opposite
// extreme. Crossing back through a band, rather than sitting beyond it, is
// what triggers an entry.
type RSIReversion struct {
	RSIReversionConfig
}

type RSIReversionConfig struct {
	Name       string  `json:"name" yaml:"name"`
	Symbol     string  `json:"symbol" yaml:"symbol"`
	Period     int     `json:"period" yaml:"period"`         // 14
	Oversold   float64 `json:"oversold" yaml:"oversold"`     // 30
	Overbought float64 `json:"overbought" yaml:"overbought"` // 70
}

func RSIReversionDefaults() RSIReversionConfig {
	return RSIReversionConfig{Period: 14, Oversold: 30, Overbought: 70}
}

func NewRSIReversion(cfg RSIReversionConfig) (*RSIReversion, error) {
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("rsi-reversion %q: period must be positive, got %d", cfg.Name, cfg.Period)
	}
	if cfg.Oversold >= cfg.Overbought {
		return nil, fmt.Errorf("rsi-reversion %q: oversold %v must be below overbought %v",
			cfg.Name, cfg.Oversold, cfg.Overbought)
	}
	return &RSIReversion{RSIReversionConfig: cfg}, nil
}

func (s *RSIReversion) Name() string   { return s.RSIReversionConfig.Name }
func (s *RSIReversion) Symbol() string { return s.RSIReversionConfig.Symbol }

func (s *RSIReversion) Evaluate(closes []float64, openSide *ledger.Side) Signal {
	// A few candles past the smoothing window keeps the first crossings from
	// being seed-value artifacts.
	if len(closes) < s.Period+5 {
		return Signal{}
	}

	rsi := indicators.RSI(closes, s.Period)
	curr, prev := rsi[len(rsi)-1], rsi[len(rsi)-2]

	if openSide != nil {
		switch {
		case *openSide == ledger.Long && curr > s.Overbought:
			return Signal{Action: ActionExit, Reason: "RSI overbought"}
		case *openSide == ledger.Short && curr < s.Oversold:
			return Signal{Action: ActionExit, Reason: "RSI oversold"}
		}
		return Signal{}
	}

	switch {
	case prev < s.Oversold && curr >= s.Oversold:
		return Signal{Action: ActionEnterLong, Reason: "RSI oversold recovery"}
	case prev > s.Overbought && curr <= s.Overbought:
		return Signal{Action: ActionEnterShort, Reason: "RSI overbought fade"}
	}
	return Signal{}
}
