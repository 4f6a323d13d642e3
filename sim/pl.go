package sim

import "github.com/shopspring/decimal"

// Points returns the direction-aware price move from entry to exit.
// Positive is profit.
func Points(dir Direction, entry, exit decimal.Decimal) decimal.Decimal {
	if dir == Short {
		return entry.Sub(exit)
	}
	return exit.Sub(entry)
}

// Unrealized is the point P/L of an open position marked at price.
func Unrealized(p Position, price decimal.Decimal) decimal.Decimal {
	return Points(p.Direction, p.EntryPrice, price)
}
