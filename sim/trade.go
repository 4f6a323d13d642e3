package sim

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reason says why a position was closed.
type Reason string

const (
	ReasonTakeProfit Reason = "take_profit"
	ReasonStopLoss   Reason = "stop_loss"
	ReasonDayEnd     Reason = "day_end"
	ReasonFeedEnd    Reason = "feed_end"
)

// Settlement is the outcome of closing a position.
//
// Capital is always settled. A trade whose exit time is unknown is still
// applied to the ledger but cannot be placed in the time-ordered trade log,
// so it comes back as SettledOnly and the caller keeps it apart.
type Settlement int

const (
	Logged Settlement = iota
	SettledOnly
)

func (s Settlement) String() string {
	switch s {
	case Logged:
		return "logged"
	case SettledOnly:
		return "settled_only"
	default:
		return "unknown"
	}
}

// Trade is a settled Position.
type Trade struct {
	Position

	ExitPrice decimal.Decimal
	ExitTime  time.Time
	RawPoints decimal.Decimal // direction-aware price move
	NetPoints decimal.Decimal // RawPoints minus the round-trip fee
	Profit    decimal.Decimal // NetPoints * contract multiplier
	ProfitPct decimal.Decimal // Profit / Deposit
	Reason    Reason
}

// Win reports whether the trade made money after fees.
func (t Trade) Win() bool { return t.Profit.IsPositive() }
