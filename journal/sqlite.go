package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, strategy, symbol, side, entry_price, exit_price, margin, realized_pnl, pnl_pct, reason, open_time, close_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Strategy, t.Symbol, t.Side, t.EntryPrice, t.ExitPrice,
		t.Margin, t.RealizedPnL, t.PnLPct, t.Reason, t.OpenTime, t.CloseTime,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
