package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientMargin = errors.New("insufficient margin")
	ErrPositionNotOpen    = errors.New("position is not open")
)

// Ledger owns the account capital and the set of open positions for one
// simulation run.
//
// Between operations it always holds
//
//	Available + Locked() == Total
//
// Total moves only when a position closes, by the trade's net profit.
type Ledger struct {
	params Params

	initial   decimal.Decimal
	total     decimal.Decimal
	available decimal.Decimal

	open   []Position // in open order
	nextID int
}

func NewLedger(initial decimal.Decimal, p Params) (*Ledger, error) {
	if !initial.IsPositive() {
		return nil, fmt.Errorf("initial capital must be positive, got %s", initial)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Ledger{
		params:    p,
		initial:   initial,
		total:     initial,
		available: initial,
		nextID:    1,
	}, nil
}

func (l *Ledger) Params() Params             { return l.params }
func (l *Ledger) Initial() decimal.Decimal   { return l.initial }
func (l *Ledger) Total() decimal.Decimal     { return l.total }
func (l *Ledger) Available() decimal.Decimal { return l.available }

// Open returns a copy of the open positions in the order they were opened.
func (l *Ledger) Open() []Position {
	out := make([]Position, len(l.open))
	copy(out, l.open)
	return out
}

// Locked is the capital currently held as deposit by open positions.
func (l *Ledger) Locked() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range l.open {
		sum = sum.Add(p.Deposit)
	}
	return sum
}

// CheckInvariant verifies Available + Locked == Total.
func (l *Ledger) CheckInvariant() error {
	if got := l.available.Add(l.Locked()); !got.Equal(l.total) {
		return fmt.Errorf("ledger out of balance: available %s + locked %s != total %s",
			l.available, l.Locked(), l.total)
	}
	return nil
}

// TryOpen locks a deposit and opens a position at price.
//
// When the available capital cannot cover the deposit nothing changes and
// the returned error wraps ErrInsufficientMargin. That rejection is not
// fatal to a run; callers must not retry it on their own.
func (l *Ledger) TryOpen(symbol string, dir Direction, price decimal.Decimal, at time.Time) (Position, error) {
	if dir != Long && dir != Short {
		return Position{}, fmt.Errorf("open: invalid direction %s", dir)
	}
	if !price.IsPositive() {
		return Position{}, fmt.Errorf("open: price must be positive, got %s", price)
	}

	deposit := l.params.Deposit(price)
	if l.available.LessThan(deposit) {
		return Position{}, fmt.Errorf("open %s %s at %s: need %s, available %s: %w",
			dir, symbol, price, deposit.StringFixed(0), l.available.StringFixed(0), ErrInsufficientMargin)
	}

	p := Position{
		ID:         l.nextID,
		Symbol:     symbol,
		Direction:  dir,
		EntryPrice: price,
		EntryTime:  at,
		Deposit:    deposit,
	}
	l.nextID++
	l.available = l.available.Sub(deposit)
	l.open = append(l.open, p)
	return p, nil
}

// Close settles the open position id at exitPrice.
//
// The deposit plus net profit returns to Available and the profit is added
// to Total no matter what. If exitAt is the zero time the trade is
// SettledOnly: its capital effect stands but it has no place in the log.
func (l *Ledger) Close(id int, exitPrice decimal.Decimal, exitAt time.Time, reason Reason) (Trade, Settlement, error) {
	idx := l.indexOf(id)
	if idx < 0 {
		return Trade{}, 0, fmt.Errorf("close position %d: %w", id, ErrPositionNotOpen)
	}
	p := l.open[idx]

	raw := Points(p.Direction, p.EntryPrice, exitPrice)
	net := raw.Sub(l.params.FeePoints)
	profit := net.Mul(l.params.ContractMultiplier)

	l.available = l.available.Add(p.Deposit).Add(profit)
	l.total = l.total.Add(profit)
	l.open = append(l.open[:idx:idx], l.open[idx+1:]...)

	t := Trade{
		Position:  p,
		ExitPrice: exitPrice,
		ExitTime:  exitAt,
		RawPoints: raw,
		NetPoints: net,
		Profit:    profit,
		ProfitPct: profit.Div(p.Deposit),
		Reason:    reason,
	}

	if exitAt.IsZero() {
		return t, SettledOnly, nil
	}
	return t, Logged, nil
}

func (l *Ledger) indexOf(id int) int {
	for i, p := range l.open {
		if p.ID == id {
			return i
		}
	}
	return -1
}
