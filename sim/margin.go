package sim

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Params are the contract constants used for margin and P/L.
type Params struct {
	ContractMultiplier  decimal.Decimal // currency value of one index point
	MarginRatio         decimal.Decimal
	MarginAdequacyRatio decimal.Decimal
	FeePoints           decimal.Decimal // round-trip fee in index points
}

// Validate rejects constants that would make deposit sizing meaningless.
func (p Params) Validate() error {
	if !p.ContractMultiplier.IsPositive() {
		return fmt.Errorf("contract multiplier must be positive, got %s", p.ContractMultiplier)
	}
	if !p.MarginRatio.IsPositive() {
		return fmt.Errorf("margin ratio must be positive, got %s", p.MarginRatio)
	}
	if !p.MarginAdequacyRatio.IsPositive() {
		return fmt.Errorf("margin adequacy ratio must be positive, got %s", p.MarginAdequacyRatio)
	}
	if p.FeePoints.IsNegative() {
		return fmt.Errorf("fee points must not be negative, got %s", p.FeePoints)
	}
	return nil
}

// Deposit is the capital locked to open one contract at price:
//
//	price * multiplier * margin_ratio / margin_adequacy_ratio
func (p Params) Deposit(price decimal.Decimal) decimal.Decimal {
	return price.Mul(p.ContractMultiplier).Mul(p.MarginRatio).Div(p.MarginAdequacyRatio)
}
