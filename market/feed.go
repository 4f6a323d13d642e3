package market

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyFeed    = errors.New("empty candle feed")
	ErrNonMonotonic = errors.New("candle timestamps go backwards")
	ErrMissingField = errors.New("candle is missing a required field")
	ErrBadCandle    = errors.New("candle prices are inconsistent")
)

// ValidateFeed checks that a candle feed can be simulated safely.
//
// Timestamps must be non-decreasing. Two candles may share a timestamp
// when they belong to different contract symbols (rollover overlap), but
// the feed may never step back in time.
func ValidateFeed(candles []Candle) error {
	if len(candles) == 0 {
		return ErrEmptyFeed
	}

	for i, c := range candles {
		if err := validateCandle(c); err != nil {
			return fmt.Errorf("candle %d (%s): %w", i, c.Time.Format("2006-01-02 15:04:05"), err)
		}
		if i > 0 && c.Time.Before(candles[i-1].Time) {
			return fmt.Errorf("candle %d at %s precedes %s: %w",
				i, c.Time.Format("2006-01-02 15:04:05"),
				candles[i-1].Time.Format("2006-01-02 15:04:05"), ErrNonMonotonic)
		}
	}
	return nil
}

func validateCandle(c Candle) error {
	if c.Time.IsZero() {
		return fmt.Errorf("timestamp: %w", ErrMissingField)
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol: %w", ErrMissingField)
	}

	fields := []struct {
		name string
		v    float64
	}{
		{"open", c.Open},
		{"high", c.High},
		{"low", c.Low},
		{"close", c.Close},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s: %w", f.name, ErrMissingField)
		}
		if f.v <= 0 {
			return fmt.Errorf("%s %.4f must be positive: %w", f.name, f.v, ErrBadCandle)
		}
	}

	if c.High < math.Max(c.Open, c.Close) || c.Low > math.Min(c.Open, c.Close) {
		return fmt.Errorf("high %.4f low %.4f do not bracket open/close: %w", c.High, c.Low, ErrBadCandle)
	}
	if c.SMAReady && (math.IsNaN(c.SMA) || math.IsInf(c.SMA, 0)) {
		return fmt.Errorf("sma: %w", ErrMissingField)
	}
	return nil
}
