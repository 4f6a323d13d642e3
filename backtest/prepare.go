package backtest

import (
	"fmt"

	"github.com/rustyeddy/daytrader/indicators"
	"github.com/rustyeddy/daytrader/market"
)

// Prepare turns raw ticks into the candle feed cfg expects: candles of
// cfg.TimeframeMinutes with an SMA over cfg.IndicatorWindow closes.
func Prepare(ticks []market.Tick, cfg Config) ([]market.Candle, error) {
	candles, err := market.Resample(ticks, cfg.Timeframe())
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	candles, err = indicators.AnnotateSMA(candles, cfg.IndicatorWindow)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	return candles, nil
}
