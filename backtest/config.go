package backtest

import (
	"fmt"
	"time"

	"github.com/rustyeddy/daytrader/sim"
	"github.com/shopspring/decimal"
)

// Config is everything one simulation run depends on. It is validated once
// when the Engine is built.
type Config struct {
	InitialCapital decimal.Decimal // VND

	ContractMultiplier  decimal.Decimal
	MarginRatio         decimal.Decimal
	MarginAdequacyRatio decimal.Decimal
	FeePoints           decimal.Decimal

	TakeProfitPoints decimal.Decimal
	StopLossPoints   decimal.Decimal

	IndicatorWindow  int // SMA length in candles
	TimeframeMinutes int // candle size and required spacing of signal candles

	Strategy string // detector name, empty for reversal
}

// DefaultConfig is the VN30F1M setup: one contract worth 100,000 VND per
// point, 17.5% margin at an 80% adequacy ratio, 0.47 points round trip.
func DefaultConfig() Config {
	return Config{
		InitialCapital:      decimal.NewFromInt(100_000_000),
		ContractMultiplier:  decimal.NewFromInt(100_000),
		MarginRatio:         decimal.RequireFromString("0.175"),
		MarginAdequacyRatio: decimal.RequireFromString("0.8"),
		FeePoints:           decimal.RequireFromString("0.47"),
		TakeProfitPoints:    decimal.NewFromInt(3),
		StopLossPoints:      decimal.NewFromInt(-1),
		IndicatorWindow:     50,
		TimeframeMinutes:    1,
		Strategy:            "reversal",
	}
}

func (c Config) Params() sim.Params {
	return sim.Params{
		ContractMultiplier:  c.ContractMultiplier,
		MarginRatio:         c.MarginRatio,
		MarginAdequacyRatio: c.MarginAdequacyRatio,
		FeePoints:           c.FeePoints,
	}
}

func (c Config) Exits() sim.Exits {
	return sim.Exits{TakeProfit: c.TakeProfitPoints, StopLoss: c.StopLossPoints}
}

func (c Config) Timeframe() time.Duration {
	return time.Duration(c.TimeframeMinutes) * time.Minute
}

func (c Config) Validate() error {
	if !c.InitialCapital.IsPositive() {
		return fmt.Errorf("initial capital must be positive, got %s", c.InitialCapital)
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if err := c.Exits().Validate(); err != nil {
		return err
	}
	if c.IndicatorWindow < 1 {
		return fmt.Errorf("indicator window must be at least 1, got %d", c.IndicatorWindow)
	}
	if c.TimeframeMinutes < 1 {
		return fmt.Errorf("timeframe must be at least 1 minute, got %d", c.TimeframeMinutes)
	}
	return nil
}
