package sim

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction: +1 long, -1 short
type Direction int8

const (
	Long  Direction = +1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return fmt.Sprintf("Direction(%d)", int8(d))
	}
}

// ParseDirection is the inverse of Direction.String.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long":
		return Long, nil
	case "short":
		return Short, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// Position is an open leveraged futures position. It never changes after
// it is opened; closing it produces a Trade.
type Position struct {
	ID         int
	Symbol     string
	Direction  Direction
	EntryPrice decimal.Decimal
	EntryTime  time.Time
	Deposit    decimal.Decimal
}
