package journal

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	strategy TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	margin REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	pnl_pct REAL NOT NULL,
	reason TEXT NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_close_time ON trades(close_time);
CREATE INDEX IF NOT EXISTS idx_trades_strategy ON trades(strategy);
`
