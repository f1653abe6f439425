package strategy

import (
	"fmt"

	"github.com/rustyeddy/perps/indicators"
	"github.com/rustyeddy/perps/ledger"
)

// EMACross trades a single symbol on a fast/slow EMA crossover:
// golden cross (fast crosses above slow) opens a long, death cross opens a
// short, and the opposite cross exits an open position. Entries happen only
// on the cross itself, never on a persisting condition.
type EMACross struct {
	EMACrossConfig
}

type EMACrossConfig struct {
	Name   string `json:"name" yaml:"name"`
	Symbol string `json:"symbol" yaml:"symbol"`
	Fast   int    `json:"fast" yaml:"fast"` // 12
	Slow   int    `json:"slow" yaml:"slow"` // 26
}

func EMACrossDefaults() EMACrossConfig {
	return EMACrossConfig{Fast: 12, Slow: 26}
}

func NewEMACross(cfg EMACrossConfig) (*EMACross, error) {
	if cfg.Fast <= 0 || cfg.Slow <= 0 || cfg.Fast >= cfg.Slow {
		return nil, fmt.Errorf("ema-cross %q: need 0 < fast < slow, got %d/%d",
			cfg.Name, cfg.Fast, cfg.Slow)
	}
	return &EMACross{EMACrossConfig: cfg}, nil
}

func (s *EMACross) Name() string   { return s.EMACrossConfig.Name }
func (s *EMACross) Symbol() string { return s.EMACrossConfig.Symbol }

func (s *EMACross) Evaluate(closes []float64, openSide *ledger.Side) Signal {
	// Need one candle beyond the slow span before crosses mean anything.
	if len(closes) < s.Slow+1 {
		return Signal{}
	}

	fast := indicators.EMA(closes, s.Fast)
	slow := indicators.EMA(closes, s.Slow)
	n := len(closes)

	golden := fast[n-2] <= slow[n-2] && fast[n-1] > slow[n-1]
	death := fast[n-2] >= slow[n-2] && fast[n-1] < slow[n-1]

	if openSide != nil {
		switch {
		case *openSide == ledger.Long && death:
			return Signal{Action: ActionExit, Reason: "EMA death cross"}
		case *openSide == ledger.Short && golden:
			return Signal{Action: ActionExit, Reason: "EMA golden cross"}
		}
		return Signal{}
	}

	switch {
	case golden:
		return Signal{Action: ActionEnterLong, Reason: "EMA golden cross"}
	case death:
		return Signal{Action: ActionEnterShort, Reason: "EMA death cross"}
	}
	return Signal{}
}
