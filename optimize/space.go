// Package optimize searches strategy parameters by random sampling.
package optimize

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rustyeddy/daytrader/backtest"
	"github.com/shopspring/decimal"
)

// Space bounds the sampled parameters. All ranges are inclusive.
type Space struct {
	SMAMin, SMAMax int
	TPMin, TPMax   float64
	SLMin, SLMax   float64
	TFMin, TFMax   int

	// MaxSpan caps timeframe*sma in minutes so the SMA warms up within
	// a trading session. Zero disables the cap.
	MaxSpan int
}

func DefaultSpace() Space {
	return Space{
		SMAMin: 10, SMAMax: 100,
		TPMin: 2, TPMax: 10,
		SLMin: -5, SLMax: -0.5,
		TFMin: 1, TFMax: 20,
		MaxSpan: 100,
	}
}

func (s Space) Validate() error {
	switch {
	case s.SMAMin < 1 || s.SMAMax < s.SMAMin:
		return fmt.Errorf("sma range [%d, %d] is invalid", s.SMAMin, s.SMAMax)
	case s.TFMin < 1 || s.TFMax < s.TFMin:
		return fmt.Errorf("timeframe range [%d, %d] is invalid", s.TFMin, s.TFMax)
	case s.TPMax < s.TPMin:
		return fmt.Errorf("take profit range [%g, %g] is invalid", s.TPMin, s.TPMax)
	case s.SLMax < s.SLMin:
		return fmt.Errorf("stop loss range [%g, %g] is invalid", s.SLMin, s.SLMax)
	case s.SLMax >= s.TPMin:
		return fmt.Errorf("stop loss range must lie below take profit range")
	case s.MaxSpan < 0:
		return fmt.Errorf("max span must not be negative, got %d", s.MaxSpan)
	}
	return nil
}

// Params is one sampled parameter set. The JSON names match the params
// file the backtest config can be seeded from.
type Params struct {
	SMAWindow        int     `json:"sma_window"`
	TakeProfit       float64 `json:"take_profit"`
	StopLoss         float64 `json:"stop_loss"`
	TimeframeMinutes int     `json:"time_frame"`
}

// Apply returns base with p's parameters.
func (p Params) Apply(base backtest.Config) backtest.Config {
	cfg := base
	cfg.IndicatorWindow = p.SMAWindow
	cfg.TakeProfitPoints = decimal.NewFromFloat(p.TakeProfit)
	cfg.StopLossPoints = decimal.NewFromFloat(p.StopLoss)
	cfg.TimeframeMinutes = p.TimeframeMinutes
	return cfg
}

// Sample draws one parameter set. Draw order is fixed (sma, take profit,
// stop loss, timeframe) so a seeded rng always yields the same sequence.
func Sample(rng *rand.Rand, s Space) Params {
	p := Params{
		SMAWindow:        intBetween(rng, s.SMAMin, s.SMAMax),
		TakeProfit:       round2(floatBetween(rng, s.TPMin, s.TPMax)),
		StopLoss:         round2(floatBetween(rng, s.SLMin, s.SLMax)),
		TimeframeMinutes: intBetween(rng, s.TFMin, s.TFMax),
	}
	if s.MaxSpan > 0 && p.TimeframeMinutes*p.SMAWindow > s.MaxSpan {
		p.SMAWindow = max(1, s.MaxSpan/p.TimeframeMinutes)
	}
	return p
}

func intBetween(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

func floatBetween(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
