package market

import (
	"time"
)

// Candle represents one OHLC bar for a single contract symbol.
//
// SMA holds the trailing simple moving average of closes. It is only
// meaningful when SMAReady is true; until enough history has accumulated
// the indicator is undefined.
type Candle struct {
	time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64

	SMA      float64
	SMAReady bool
}

// Bearish reports whether the candle closed below its open.
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// SameDay reports whether a and b fall on the same calendar date in the
// location each timestamp carries.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Tick is one matched trade as it comes out of the exchange store.
type Tick struct {
	Time   time.Time
	Symbol string
	Price  float64
}
