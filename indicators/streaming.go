package indicators

import (
	"fmt"

	"github.com/rustyeddy/daytrader/market"
)

// SimpleMA is a streaming Simple Moving Average of closing prices.
type SimpleMA struct {
	period int
	closes []float64
}

// NewMA creates a new Simple Moving Average indicator with the given period
func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		closes: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("SMA(%d)", m.period)
}

func (m *SimpleMA) Warmup() int {
	return m.period
}

func (m *SimpleMA) Reset() {
	m.closes = m.closes[:0]
}

func (m *SimpleMA) Update(c market.Candle) {
	m.closes = append(m.closes, c.Close)
	// Keep only the last 'period' closes
	if len(m.closes) > m.period {
		m.closes = m.closes[1:]
	}
}

func (m *SimpleMA) Ready() bool {
	return m.period > 0 && len(m.closes) >= m.period
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}

	sum := 0.0
	for _, c := range m.closes {
		sum += c
	}
	return sum / float64(len(m.closes))
}

// AnnotateSMA returns a copy of candles with the SMA fields filled in.
//
// Each symbol keeps its own window, so a rollover to the next contract
// starts a fresh warmup instead of averaging two different instruments.
// Candles seen before the window is full keep SMAReady=false.
func AnnotateSMA(candles []market.Candle, window int) ([]market.Candle, error) {
	if window <= 0 {
		return nil, fmt.Errorf("sma window must be positive, got %d", window)
	}

	out := make([]market.Candle, len(candles))
	mas := map[string]*SimpleMA{}

	for i, c := range candles {
		ma, ok := mas[c.Symbol]
		if !ok {
			ma = NewMA(window)
			mas[c.Symbol] = ma
		}
		ma.Update(c)

		c.SMA, c.SMAReady = 0, false
		if ma.Ready() {
			c.SMA = ma.Value()
			c.SMAReady = true
		}
		out[i] = c
	}
	return out, nil
}
