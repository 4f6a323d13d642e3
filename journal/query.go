package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrNotFound = errors.New("not found")

const tradeColumns = `trade_id, run_id, symbol, direction, entry_price, entry_time, deposit,
	exit_price, exit_time, raw_points, net_points, profit, profit_pct, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.RunID,
		&rec.Symbol,
		&rec.Direction,
		&rec.EntryPrice,
		&rec.EntryTime,
		&rec.Deposit,
		&rec.ExitPrice,
		&rec.ExitTime,
		&rec.RawPoints,
		&rec.NetPoints,
		&rec.Profit,
		&rec.ProfitPct,
		&rec.Reason,
	)
	return rec, err
}

func collectTrades(rows *sql.Rows) ([]TradeRecord, error) {
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLiteJournal) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesByRunID returns a run's trades in exit order.
func (j *SQLiteJournal) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE run_id = ?
		ORDER BY exit_time ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

// ListTradesClosedBetween returns trades whose exit_time is within [start, end).
func (j *SQLiteJournal) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC, trade_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

// GetRun loads one run record.
func (j *SQLiteJournal) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, strategy, dataset, take_profit, stop_loss, sma_window,
		       timeframe_minutes, start_time, end_time, trades, wins, losses, rejected,
		       initial_capital, final_total, total_profit, unrecorded_profit,
		       hpr_pct, max_dd_pct, sharpe
		FROM runs
		WHERE run_id = ?`, runID)

	var (
		r      RunRecord
		sharpe sql.NullFloat64
	)
	err := row.Scan(
		&r.RunID, &r.Created, &r.Strategy, &r.Dataset,
		&r.TakeProfit, &r.StopLoss, &r.SMAWindow, &r.TimeframeMinutes,
		&r.Start, &r.End,
		&r.Trades, &r.Wins, &r.Losses, &r.Rejected,
		&r.InitialCapital, &r.FinalTotal, &r.TotalProfit, &r.UnrecordedProfit,
		&r.HPRPct, &r.MaxDDPct, &sharpe,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return RunRecord{}, err
	}

	r.Sharpe = math.NaN()
	if sharpe.Valid {
		r.Sharpe = sharpe.Float64
	}
	return r, nil
}

// ListEquityByRunID returns a run's equity snapshots in time order.
func (j *SQLiteJournal) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, total, available, locked, open_positions
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Total, &e.Available, &e.Locked, &e.Open); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
