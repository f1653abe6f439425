// Package notify delivers trade and status notifications. The engine only
// speaks to the Notifier interface; Telegram is the one real backend and Nop
// stands in when no credentials are configured.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rustyeddy/perps/ledger"
)

type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Nop discards every message.
type Nop struct{}

func (Nop) Send(context.Context, string) error { return nil }

// FormatOpen renders a position-opened message.
func FormatOpen(pos ledger.Position, leverage float64) string {
	coin := strings.TrimSuffix(pos.Symbol, "USDT")
	return fmt.Sprintf(
		"\U0001F4DD <b>%s OPEN</b>\n%s %s @ $%.2f\nMargin: $%.2f | %.0fx\nSL: $%.2f | TP: $%.2f",
		pos.Strategy, coin, strings.ToUpper(string(pos.Side)), pos.EntryPrice,
		pos.Margin, leverage, pos.StopLoss, pos.TakeProfit,
	)
}

// FormatClose renders a position-closed message including the new balance.
func FormatClose(trade ledger.Trade, balance float64) string {
	coin := strings.TrimSuffix(trade.Symbol, "USDT")
	emoji := "\U0001F7E2"
	if trade.PnL <= 0 {
		emoji = "\U0001F534"
	}
	return fmt.Sprintf(
		"%s <b>%s CLOSE</b>\n%s %s | %s\n$%.2f → $%.2f\nPnL: $%+.2f (%+.1f%%)\nBalance: $%.2f",
		emoji, trade.Strategy, coin, strings.ToUpper(string(trade.Side)), trade.Reason,
		trade.EntryPrice, trade.ExitPrice, trade.PnL, trade.PnLPct, balance,
	)
}
