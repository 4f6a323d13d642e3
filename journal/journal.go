package journal

import (
	"fmt"
	"time"

	"github.com/rustyeddy/daytrader/sim"
	"github.com/shopspring/decimal"
)

// TradeRecord is one row of the trade log.
type TradeRecord struct {
	TradeID   string
	RunID     string
	Symbol    string
	Direction string

	EntryPrice decimal.Decimal
	EntryTime  time.Time
	Deposit    decimal.Decimal
	ExitPrice  decimal.Decimal
	ExitTime   time.Time

	RawPoints decimal.Decimal
	NetPoints decimal.Decimal
	Profit    decimal.Decimal
	ProfitPct decimal.Decimal
	Reason    string
}

// NewTradeRecord flattens a settled trade for storage. Trade IDs are the
// run ID plus the position sequence number so they sort in open order.
func NewTradeRecord(runID string, t sim.Trade) TradeRecord {
	return TradeRecord{
		TradeID:    fmt.Sprintf("%s-%04d", runID, t.ID),
		RunID:      runID,
		Symbol:     t.Symbol,
		Direction:  t.Direction.String(),
		EntryPrice: t.EntryPrice,
		EntryTime:  t.EntryTime,
		Deposit:    t.Deposit,
		ExitPrice:  t.ExitPrice,
		ExitTime:   t.ExitTime,
		RawPoints:  t.RawPoints,
		NetPoints:  t.NetPoints,
		Profit:     t.Profit,
		ProfitPct:  t.ProfitPct,
		Reason:     string(t.Reason),
	}
}

// Win reports whether the trade made money after fees.
func (t TradeRecord) Win() bool { return t.Profit.IsPositive() }

// EquitySnapshot is the account state right after a position closed.
type EquitySnapshot struct {
	RunID     string
	Time      time.Time
	Total     decimal.Decimal
	Available decimal.Decimal
	Locked    decimal.Decimal
	Open      int
}

// RunRecord describes one finished backtest run.
type RunRecord struct {
	RunID    string
	Created  time.Time
	Strategy string
	Dataset  string

	TakeProfit       decimal.Decimal
	StopLoss         decimal.Decimal
	SMAWindow        int
	TimeframeMinutes int

	Start time.Time
	End   time.Time

	Trades   int
	Wins     int
	Losses   int
	Rejected int

	InitialCapital   decimal.Decimal
	FinalTotal       decimal.Decimal
	TotalProfit      decimal.Decimal
	UnrecordedProfit decimal.Decimal

	// Derived by the evaluator. Sharpe is NaN when undefined.
	HPRPct   float64
	MaxDDPct float64
	Sharpe   float64

	Notes []string
}

// WinRate is the share of logged trades that made money, in percent.
func (r RunRecord) WinRate() float64 {
	if r.Trades == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Trades) * 100
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	RecordRun(RunRecord) error
	Close() error
}

// Discard is a Journal that drops everything.
type Discard struct{}

func (Discard) RecordTrade(TradeRecord) error     { return nil }
func (Discard) RecordEquity(EquitySnapshot) error { return nil }
func (Discard) RecordRun(RunRecord) error         { return nil }
func (Discard) Close() error                      { return nil }
