// Package journal persists the append-only closed-trade history.
package journal

import "time"

// TradeRecord is one closed trade as written to the journal. Records are
// append-only: they are never updated or deleted.
type TradeRecord struct {
	TradeID     string
	Strategy    string
	Symbol      string
	Side        string
	EntryPrice  float64
	ExitPrice   float64
	Margin      float64
	RealizedPnL float64
	PnLPct      float64
	Reason      string
	OpenTime    time.Time
	CloseTime   time.Time
}

type Journal interface {
	RecordTrade(TradeRecord) error
	Close() error
}
