package market

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// TimeLayout is the wall-clock layout used by candle and tick files.
// Fractional seconds are written only when present, down to microseconds.
const TimeLayout = "2006-01-02 15:04:05.999999"

// candleJSON is the on-disk form of a Candle. Pointers let us tell a
// missing field apart from a zero value.
type candleJSON struct {
	Datetime string   `json:"datetime"`
	Symbol   string   `json:"tickersymbol"`
	Open     *float64 `json:"open"`
	High     *float64 `json:"high"`
	Low      *float64 `json:"low"`
	Close    *float64 `json:"close"`
	SMA      *float64 `json:"sma"`
}

// ReadCandlesJSON decodes a JSON array of candle records. Timestamps
// without an offset are interpreted in loc (UTC when nil). A null or absent
// sma marks the indicator as undefined; any other missing field is an error.
func ReadCandlesJSON(r io.Reader, loc *time.Location) ([]Candle, error) {
	if loc == nil {
		loc = time.UTC
	}

	var rows []candleJSON
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}

	out := make([]Candle, 0, len(rows))
	for i, row := range rows {
		c, err := row.candle(loc)
		if err != nil {
			return nil, fmt.Errorf("candle %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (row candleJSON) candle(loc *time.Location) (Candle, error) {
	t, err := ParseTime(row.Datetime, loc)
	if err != nil {
		return Candle{}, err
	}

	required := []struct {
		name string
		p    *float64
	}{
		{"open", row.Open},
		{"high", row.High},
		{"low", row.Low},
		{"close", row.Close},
	}
	for _, f := range required {
		if f.p == nil {
			return Candle{}, fmt.Errorf("%s: %w", f.name, ErrMissingField)
		}
	}

	c := Candle{
		Time:   t,
		Symbol: strings.TrimSpace(row.Symbol),
		Open:   *row.Open,
		High:   *row.High,
		Low:    *row.Low,
		Close:  *row.Close,
	}
	if row.SMA != nil {
		c.SMA = *row.SMA
		c.SMAReady = true
	}
	return c, nil
}

// WriteCandlesJSON encodes candles in the format ReadCandlesJSON accepts.
func WriteCandlesJSON(w io.Writer, candles []Candle) error {
	rows := make([]candleJSON, 0, len(candles))
	for _, c := range candles {
		c := c
		row := candleJSON{
			Datetime: c.Time.Format(TimeLayout),
			Symbol:   c.Symbol,
			Open:     &c.Open,
			High:     &c.High,
			Low:      &c.Low,
			Close:    &c.Close,
		}
		if c.SMAReady {
			row.SMA = &c.SMA
		}
		rows = append(rows, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(rows)
}

// ParseTime accepts the wall-clock layout used by the exchange exports,
// RFC3339 timestamps and bare dates.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("timestamp: %w", ErrMissingField)
	}
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{TimeLayout, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}
