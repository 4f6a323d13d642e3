package strategies

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/daytrader/market"
	"github.com/rustyeddy/daytrader/sim"
)

// Signal is an entry intent produced by a Detector.
type Signal struct {
	Symbol    string
	Direction sim.Direction
	Price     float64 // fill price: the current candle's close
	Time      time.Time
}

// Detector inspects the tail of the candle feed and decides whether to
// enter. Implementations must be pure: the same window always yields the
// same answer.
//
// window[len(window)-1] is the current candle. The simulator passes at
// most Lookback()+1 candles and fewer near the start of the feed.
type Detector interface {
	Name() string
	Lookback() int
	Detect(window []market.Candle) (Signal, bool)
}

// ByName returns the detector registered under name.
func ByName(name string, timeframe time.Duration) (Detector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none":
		return NoopStrategy{}, nil

	case "", "reversal", "three-bar":
		return NewReversal(timeframe), nil

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: reversal, noop)", name)
	}
}
