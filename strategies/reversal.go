package strategies

import (
	"time"

	"github.com/rustyeddy/daytrader/market"
	"github.com/rustyeddy/daytrader/sim"
)

// Pattern classifies the run of candles before the current one.
type Pattern int

const (
	Mixed Pattern = iota
	Bearish
	Bullish
)

func (p Pattern) String() string {
	switch p {
	case Bearish:
		return "bearish"
	case Bullish:
		return "bullish"
	default:
		return "mixed"
	}
}

// Classify returns Bearish if every candle closed below its open, Bullish
// if every candle closed above it, Mixed otherwise.
func Classify(candles []market.Candle) Pattern {
	if len(candles) == 0 {
		return Mixed
	}
	bear, bull := true, true
	for _, c := range candles {
		bear = bear && c.Bearish()
		bull = bull && c.Bullish()
	}
	switch {
	case bear:
		return Bearish
	case bull:
		return Bullish
	}
	return Mixed
}

// reversalBars is the number of prior candles forming the pattern.
const reversalBars = 3

// Reversal fades a three-candle run once price breaks back through the
// last candle's range on the side of the SMA trend filter.
//
//   - long:  three bearish candles, previous high < close, close > SMA
//   - short: three bullish candles, previous low > close, close < SMA
//
// The four candles must be one Timeframe apart and share a symbol.
type Reversal struct {
	Timeframe time.Duration
}

func NewReversal(timeframe time.Duration) *Reversal {
	if timeframe <= 0 {
		timeframe = time.Minute
	}
	return &Reversal{Timeframe: timeframe}
}

func (r *Reversal) Name() string  { return "reversal" }
func (r *Reversal) Lookback() int { return reversalBars }

func (r *Reversal) Detect(window []market.Candle) (Signal, bool) {
	if len(window) < reversalBars+1 {
		return Signal{}, false
	}
	window = window[len(window)-reversalBars-1:]
	if !r.contiguous(window) {
		return Signal{}, false
	}

	cur := window[reversalBars]
	if !cur.SMAReady {
		return Signal{}, false
	}
	prev := window[reversalBars-1]

	var dir sim.Direction
	switch Classify(window[:reversalBars]) {
	case Bearish:
		if prev.High < cur.Close && cur.Close > cur.SMA {
			dir = sim.Long
		}
	case Bullish:
		if prev.Low > cur.Close && cur.Close < cur.SMA {
			dir = sim.Short
		}
	}
	if dir == 0 {
		return Signal{}, false
	}

	return Signal{
		Symbol:    cur.Symbol,
		Direction: dir,
		Price:     cur.Close,
		Time:      cur.Time,
	}, true
}

// contiguous reports whether every candle is exactly one timeframe after
// the one before it and all share the same symbol.
func (r *Reversal) contiguous(window []market.Candle) bool {
	for i := 1; i < len(window); i++ {
		if window[i].Symbol != window[0].Symbol {
			return false
		}
		if window[i].Time.Sub(window[i-1].Time) != r.Timeframe {
			return false
		}
	}
	return true
}
