// Package ledger owns the open positions, the closed-trade history, and the
// shared trading capital. All mutation is expected to happen on the single
// event-processing goroutine, so the ledger carries no locking; see the engine
// package for the ownership discipline.
package ledger

import "time"

type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// Reason classifies why a position was closed.
type Reason string

const (
	StopLoss       Reason = "StopLoss"
	TakeProfit     Reason = "TakeProfit"
	SignalReversal Reason = "SignalReversal"
	EndOfReplay    Reason = "EndOfReplay"
)

// Position is one open position. Exactly one may exist per strategy at any
// time. A position is never partially mutated: it is created by Open and
// destroyed by CloseAtPrice.
type Position struct {
	Strategy   string    `json:"strategy"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	Margin     float64   `json:"margin"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	OpenedAt   time.Time `json:"opened_at"`
	EntryFee   float64   `json:"entry_fee"`
}

// Trade is an immutable closed-position record.
type Trade struct {
	ID         string    `json:"id"`
	Strategy   string    `json:"strategy"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Margin     float64   `json:"margin"`
	PnL        float64   `json:"pnl"`
	PnLPct     float64   `json:"pnl_pct"`
	Reason     Reason    `json:"reason"`
	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `json:"closed_at"`
}
