package market

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Resample builds OHLC candles from ticks, one series per symbol.
//
// Buckets are aligned to midnight in each tick's own location, so 7 minute
// candles on a 09:00 session open at 09:00, 09:07 and so on. Ticks are
// applied in time order within a symbol; buckets that received no ticks
// produce no candle. The result is sorted by time, then symbol, and carries
// no SMA.
func Resample(ticks []Tick, timeframe time.Duration) ([]Candle, error) {
	if timeframe <= 0 {
		return nil, fmt.Errorf("resample: timeframe must be positive, got %s", timeframe)
	}

	bySymbol := map[string][]Tick{}
	var symbols []string
	for _, t := range ticks {
		if _, ok := bySymbol[t.Symbol]; !ok {
			symbols = append(symbols, t.Symbol)
		}
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], t)
	}

	var out []Candle
	for _, sym := range symbols {
		series := bySymbol[sym]
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Time.Before(series[j].Time)
		})

		var cur *Candle
		for _, t := range series {
			bucket := bucketStart(t.Time, timeframe)
			if cur == nil || !cur.Time.Equal(bucket) {
				if cur != nil {
					out = append(out, *cur)
				}
				cur = &Candle{
					Time:   bucket,
					Symbol: sym,
					Open:   t.Price,
					High:   t.Price,
					Low:    t.Price,
					Close:  t.Price,
				}
				continue
			}
			if t.Price > cur.High {
				cur.High = t.Price
			}
			if t.Price < cur.Low {
				cur.Low = t.Price
			}
			cur.Close = t.Price
		}
		if cur != nil {
			out = append(out, *cur)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}

func bucketStart(t time.Time, timeframe time.Duration) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return midnight.Add(t.Sub(midnight).Truncate(timeframe))
}

// FrontMonth drops ticks for contracts that expire more than one month
// after the tick date. The contract is read from the YYMM suffix of the
// symbol (VN30F2311 -> November 2023), so a December tick keeps the January
// contract of the next year. Symbols without a four digit suffix are kept.
func FrontMonth(ticks []Tick) []Tick {
	out := make([]Tick, 0, len(ticks))
	for _, t := range ticks {
		contract, ok := contractMonth(t.Symbol)
		if ok && contract > monthIndex(t.Time)+1 {
			continue
		}
		out = append(out, t)
	}
	return out
}

// contractMonth returns year*12 + month-1 for a symbol ending in YYMM.
func contractMonth(symbol string) (int, bool) {
	if len(symbol) < 4 {
		return 0, false
	}
	yymm := symbol[len(symbol)-4:]
	for _, r := range yymm {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	yy, _ := strconv.Atoi(yymm[:2])
	mm, _ := strconv.Atoi(yymm[2:])
	if mm < 1 || mm > 12 {
		return 0, false
	}
	return (2000+yy)*12 + mm - 1, true
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// SplitSample divides ticks into an in-sample prefix holding ratio of the
// rows and the out-of-sample remainder. The two halves do not overlap.
func SplitSample(ticks []Tick, ratio float64) (in, out []Tick, err error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, fmt.Errorf("split ratio must be in (0, 1), got %.3f", ratio)
	}
	n := int(float64(len(ticks)) * ratio)
	return ticks[:n], ticks[n:], nil
}
