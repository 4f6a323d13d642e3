package journal

// Decimal columns are TEXT so amounts round-trip exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	dataset TEXT NOT NULL,
	take_profit TEXT NOT NULL,
	stop_loss TEXT NOT NULL,
	sma_window INTEGER NOT NULL,
	timeframe_minutes INTEGER NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	rejected INTEGER NOT NULL,
	initial_capital TEXT NOT NULL,
	final_total TEXT NOT NULL,
	total_profit TEXT NOT NULL,
	unrecorded_profit TEXT NOT NULL,
	hpr_pct REAL NOT NULL,
	max_dd_pct REAL NOT NULL,
	sharpe REAL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry_price TEXT NOT NULL,
	entry_time DATETIME NOT NULL,
	deposit TEXT NOT NULL,
	exit_price TEXT NOT NULL,
	exit_time DATETIME NOT NULL,
	raw_points TEXT NOT NULL,
	net_points TEXT NOT NULL,
	profit TEXT NOT NULL,
	profit_pct TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
CREATE INDEX IF NOT EXISTS idx_trades_exit ON trades(exit_time);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	total TEXT NOT NULL,
	available TEXT NOT NULL,
	locked TEXT NOT NULL,
	open_positions INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_run_time ON equity(run_id, time);
`
