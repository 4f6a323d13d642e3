package journal

import (
	"database/sql"
	"math"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

// Times are stored in UTC so range queries compare lexically.
func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, symbol, direction, entry_price, entry_time, deposit,
		 exit_price, exit_time, raw_points, net_points, profit, profit_pct, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Symbol, t.Direction,
		t.EntryPrice, t.EntryTime.UTC(), t.Deposit,
		t.ExitPrice, t.ExitTime.UTC(),
		t.RawPoints, t.NetPoints, t.Profit, t.ProfitPct, t.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, total, available, locked, open_positions)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Time.UTC(), e.Total, e.Available, e.Locked, e.Open,
	)
	return err
}

func (j *SQLiteJournal) RecordRun(r RunRecord) error {
	var sharpe sql.NullFloat64
	if !math.IsNaN(r.Sharpe) && !math.IsInf(r.Sharpe, 0) {
		sharpe = sql.NullFloat64{Float64: r.Sharpe, Valid: true}
	}

	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, strategy, dataset, take_profit, stop_loss, sma_window,
		 timeframe_minutes, start_time, end_time, trades, wins, losses, rejected,
		 initial_capital, final_total, total_profit, unrecorded_profit,
		 hpr_pct, max_dd_pct, sharpe)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Strategy, r.Dataset,
		r.TakeProfit, r.StopLoss, r.SMAWindow, r.TimeframeMinutes,
		r.Start.UTC(), r.End.UTC(),
		r.Trades, r.Wins, r.Losses, r.Rejected,
		r.InitialCapital, r.FinalTotal, r.TotalProfit, r.UnrecordedProfit,
		r.HPRPct, r.MaxDDPct, sharpe,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
