package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ReadTicksCSV reads tick rows:
//
//	datetime,tickersymbol,price
//
// A single header row ("datetime,...") is allowed. Empty rows are skipped.
// Timestamps without an offset are interpreted in loc.
func ReadTicksCSV(r io.Reader, loc *time.Location) ([]Tick, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		out      []Tick
		sawFirst bool
		line     int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "datetime") {
				continue
			}
		}

		t, err := parseTickRow(row, loc)
		if err != nil {
			return nil, fmt.Errorf("tick line %d: %w", line, err)
		}
		out = append(out, t)
	}
}

func parseTickRow(row []string, loc *time.Location) (Tick, error) {
	if len(row) < 3 {
		return Tick{}, fmt.Errorf("need datetime,tickersymbol,price: %w", ErrMissingField)
	}

	ts, err := ParseTime(row[0], loc)
	if err != nil {
		return Tick{}, err
	}

	sym := strings.TrimSpace(row[1])
	if sym == "" {
		return Tick{}, fmt.Errorf("symbol: %w", ErrMissingField)
	}

	px, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return Tick{}, fmt.Errorf("bad price %q: %w", row[2], err)
	}

	return Tick{Time: ts, Symbol: sym, Price: px}, nil
}

// WriteTicksCSV writes ticks with a header in the format ReadTicksCSV reads.
func WriteTicksCSV(w io.Writer, ticks []Tick) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"datetime", "tickersymbol", "price"}); err != nil {
		return err
	}
	for _, t := range ticks {
		err := cw.Write([]string{
			t.Time.Format(TimeLayout),
			t.Symbol,
			strconv.FormatFloat(t.Price, 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
