package backtest

import (
	"time"

	"github.com/rustyeddy/daytrader/market"
	"github.com/rustyeddy/daytrader/sim"
	"github.com/shopspring/decimal"
)

// EquityPoint is the account right after a position closed.
type EquityPoint struct {
	Time      time.Time
	Total     decimal.Decimal
	Available decimal.Decimal
	Locked    decimal.Decimal
	Open      int
}

// State is the mutable part of one run. Nothing in it is shared between
// runs; NewState is the only way to get a clean one.
type State struct {
	Ledger *sim.Ledger

	Trades     []sim.Trade // logged, in close order
	Unrecorded []sim.Trade // settled without an exit time
	Rejected   int         // opens refused for margin
	Curve      []EquityPoint

	last map[string]market.Candle // latest candle per symbol
}

func NewState(cfg Config) (*State, error) {
	l, err := sim.NewLedger(cfg.InitialCapital, cfg.Params())
	if err != nil {
		return nil, err
	}
	return &State{Ledger: l, last: map[string]market.Candle{}}, nil
}

func (s *State) record(t sim.Trade, settlement sim.Settlement) {
	switch settlement {
	case sim.Logged:
		s.Trades = append(s.Trades, t)
	case sim.SettledOnly:
		s.Unrecorded = append(s.Unrecorded, t)
	}

	s.Curve = append(s.Curve, EquityPoint{
		Time:      t.ExitTime,
		Total:     s.Ledger.Total(),
		Available: s.Ledger.Available(),
		Locked:    s.Ledger.Locked(),
		Open:      len(s.Ledger.Open()),
	})
}

// Summary condenses a finished run.
type Summary struct {
	TotalProfit decimal.Decimal // sum over the trade log
	TradeCount  int
	Wins        int
	Losses      int
	Rejected    int

	InitialCapital   decimal.Decimal
	FinalTotal       decimal.Decimal
	FinalAvailable   decimal.Decimal
	UnrecordedProfit decimal.Decimal

	Start time.Time
	End   time.Time
}

// Result is what Engine.Run returns. The engine does no I/O; persisting a
// Result is up to the caller.
type Result struct {
	Trades     []sim.Trade
	Unrecorded []sim.Trade
	Curve      []EquityPoint
	Summary    Summary
}

func (s *State) result(start, end time.Time) Result {
	sum := Summary{
		TotalProfit:      decimal.Zero,
		TradeCount:       len(s.Trades),
		Rejected:         s.Rejected,
		InitialCapital:   s.Ledger.Initial(),
		FinalTotal:       s.Ledger.Total(),
		FinalAvailable:   s.Ledger.Available(),
		UnrecordedProfit: decimal.Zero,
		Start:            start,
		End:              end,
	}
	for _, t := range s.Trades {
		sum.TotalProfit = sum.TotalProfit.Add(t.Profit)
		switch {
		case t.Profit.IsPositive():
			sum.Wins++
		case t.Profit.IsNegative():
			sum.Losses++
		}
	}
	for _, t := range s.Unrecorded {
		sum.UnrecordedProfit = sum.UnrecordedProfit.Add(t.Profit)
	}

	return Result{
		Trades:     s.Trades,
		Unrecorded: s.Unrecorded,
		Curve:      s.Curve,
		Summary:    sum,
	}
}
