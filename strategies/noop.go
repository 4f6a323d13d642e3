package strategies

import "github.com/rustyeddy/daytrader/market"

// NoopStrategy never signals. Useful as a baseline run.
type NoopStrategy struct{}

func (NoopStrategy) Name() string  { return "noop" }
func (NoopStrategy) Lookback() int { return 0 }

func (NoopStrategy) Detect(window []market.Candle) (Signal, bool) {
	_ = window
	return Signal{}, false
}
