package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/daytrader/evaluate"
	"github.com/rustyeddy/daytrader/internal/id"
	"github.com/rustyeddy/daytrader/journal"
	"github.com/rustyeddy/daytrader/market"
)

// Runner runs an Engine and writes the outcome to a Journal.
type Runner struct {
	Engine  *Engine
	Journal journal.Journal // nil discards
	Dataset string
	Log     zerolog.Logger

	// Now stamps the run; time.Now when nil.
	Now func() time.Time
}

// RunReport is a journaled run.
type RunReport struct {
	RunID  string
	Result Result
	Report evaluate.Report
	Record journal.RunRecord
}

// Run executes the backtest, then records every logged trade, an equity
// snapshot per close, and the run itself.
func (r *Runner) Run(ctx context.Context, candles []market.Candle) (RunReport, error) {
	if r.Engine == nil {
		return RunReport{}, fmt.Errorf("backtest: Engine is required")
	}
	j := r.Journal
	if j == nil {
		j = journal.Discard{}
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}

	created := now()
	runID := id.NewAt(created)
	log := r.Log.With().Str("run", runID).Logger()
	log.Info().Int("candles", len(candles)).Str("strategy", r.Engine.Detector().Name()).Msg("backtest started")

	res, err := r.Engine.Run(candles)
	if err != nil {
		return RunReport{}, err
	}

	cfg := r.Engine.Config()
	rep := evaluate.Evaluate(cfg.InitialCapital, evaluate.FromTrades(res.Trades))
	rec := runRecord(runID, created, r.Dataset, r.Engine, res.Summary, rep)

	if err := ctx.Err(); err != nil {
		return RunReport{}, err
	}
	for _, t := range res.Trades {
		if err := j.RecordTrade(journal.NewTradeRecord(runID, t)); err != nil {
			return RunReport{}, fmt.Errorf("journal trade %d: %w", t.ID, err)
		}
	}
	for _, p := range res.Curve {
		if p.Time.IsZero() {
			continue
		}
		snap := journal.EquitySnapshot{
			RunID:     runID,
			Time:      p.Time,
			Total:     p.Total,
			Available: p.Available,
			Locked:    p.Locked,
			Open:      p.Open,
		}
		if err := j.RecordEquity(snap); err != nil {
			return RunReport{}, fmt.Errorf("journal equity: %w", err)
		}
	}
	if err := j.RecordRun(rec); err != nil {
		return RunReport{}, fmt.Errorf("journal run: %w", err)
	}

	log.Info().
		Int("trades", res.Summary.TradeCount).
		Int("rejected", res.Summary.Rejected).
		Str("profit", res.Summary.TotalProfit.StringFixed(0)).
		Msg("backtest finished")

	return RunReport{RunID: runID, Result: res, Report: rep, Record: rec}, nil
}

func runRecord(runID string, created time.Time, dataset string, e *Engine, s Summary, rep evaluate.Report) journal.RunRecord {
	cfg := e.Config()
	rec := journal.RunRecord{
		RunID:            runID,
		Created:          created,
		Strategy:         e.Detector().Name(),
		Dataset:          dataset,
		TakeProfit:       cfg.TakeProfitPoints,
		StopLoss:         cfg.StopLossPoints,
		SMAWindow:        cfg.IndicatorWindow,
		TimeframeMinutes: cfg.TimeframeMinutes,
		Start:            s.Start,
		End:              s.End,
		Trades:           s.TradeCount,
		Wins:             s.Wins,
		Losses:           s.Losses,
		Rejected:         s.Rejected,
		InitialCapital:   s.InitialCapital,
		FinalTotal:       s.FinalTotal,
		TotalProfit:      s.TotalProfit,
		UnrecordedProfit: s.UnrecordedProfit,
		HPRPct:           rep.HPRPct,
		MaxDDPct:         rep.MaxDDPct,
		Sharpe:           rep.Sharpe,
	}
	if s.Rejected > 0 {
		rec.Notes = append(rec.Notes, fmt.Sprintf("%d signals skipped for insufficient margin", s.Rejected))
	}
	if s.TradeCount == 0 {
		rec.Notes = append(rec.Notes, "no trades")
	}
	return rec
}
