package sim

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Exits holds the point thresholds that close a position. Both bounds are
// inclusive.
type Exits struct {
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
}

func (x Exits) Validate() error {
	if !x.StopLoss.LessThan(x.TakeProfit) {
		return fmt.Errorf("stop loss %s must be below take profit %s", x.StopLoss, x.TakeProfit)
	}
	return nil
}

func (x Exits) hitTakeProfit(points decimal.Decimal) bool {
	return points.GreaterThanOrEqual(x.TakeProfit)
}

func (x Exits) hitStopLoss(points decimal.Decimal) bool {
	return points.LessThanOrEqual(x.StopLoss)
}

// Check reports whether unrealized points breach either threshold.
func (x Exits) Check(points decimal.Decimal) (Reason, bool) {
	switch {
	case x.hitTakeProfit(points):
		return ReasonTakeProfit, true
	case x.hitStopLoss(points):
		return ReasonStopLoss, true
	}
	return "", false
}
