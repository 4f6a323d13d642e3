package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var tradeHeader = []string{
	"trade_id", "run_id", "symbol", "direction",
	"entry_price", "entry_time", "deposit", "exit_price", "exit_time",
	"raw_points", "net_points", "profit_vnd", "profit_pct", "reason",
}

var equityHeader = []string{"run_id", "time", "total", "available", "locked", "open"}

// CSVJournal writes trades and equity snapshots to two CSV files. Run
// records are not kept; use the SQLite journal for those.
type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)
	if err := writeHeader(tw, tradeHeader); err != nil {
		tf.Close()
		ef.Close()
		return nil, fmt.Errorf("trades header: %w", err)
	}
	if err := writeHeader(ew, equityHeader); err != nil {
		tf.Close()
		ef.Close()
		return nil, fmt.Errorf("equity header: %w", err)
	}

	return &CSVJournal{tw, ew, tf, ef}, nil
}

func writeHeader(w *csv.Writer, header []string) error {
	if err := w.Write(header); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.RunID,
		t.Symbol,
		t.Direction,
		t.EntryPrice.String(),
		t.EntryTime.Format(time.RFC3339),
		t.Deposit.String(),
		t.ExitPrice.String(),
		t.ExitTime.Format(time.RFC3339),
		t.RawPoints.String(),
		t.NetPoints.String(),
		t.Profit.String(),
		t.ProfitPct.String(),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.RunID,
		e.Time.Format(time.RFC3339),
		e.Total.String(),
		e.Available.String(),
		e.Locked.String(),
		strconv.Itoa(e.Open),
	})
	if err != nil {
		return err
	}

	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) RecordRun(RunRecord) error { return nil }

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	if err := j.ef.Close(); err != nil {
		return err
	}
	return nil
}

// ReadTradesCSV reads a trade file written by CSVJournal.
func ReadTradesCSV(r io.Reader) ([]TradeRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(tradeHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("trades csv: %w", err)
	}
	if header[0] != tradeHeader[0] {
		return nil, fmt.Errorf("trades csv: unexpected header %q", header[0])
	}

	var out []TradeRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("trades csv: %w", err)
		}
		rec, err := parseTradeRow(row)
		if err != nil {
			return nil, fmt.Errorf("trades csv line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseTradeRow(row []string) (TradeRecord, error) {
	rec := TradeRecord{
		TradeID:   row[0],
		RunID:     row[1],
		Symbol:    row[2],
		Direction: row[3],
		Reason:    row[13],
	}

	decs := []struct {
		col int
		dst *decimal.Decimal
	}{
		{4, &rec.EntryPrice},
		{6, &rec.Deposit},
		{7, &rec.ExitPrice},
		{9, &rec.RawPoints},
		{10, &rec.NetPoints},
		{11, &rec.Profit},
		{12, &rec.ProfitPct},
	}
	for _, d := range decs {
		v, err := decimal.NewFromString(row[d.col])
		if err != nil {
			return TradeRecord{}, fmt.Errorf("%s: %w", tradeHeader[d.col], err)
		}
		*d.dst = v
	}

	var err error
	if rec.EntryTime, err = time.Parse(time.RFC3339, row[5]); err != nil {
		return TradeRecord{}, fmt.Errorf("entry_time: %w", err)
	}
	if rec.ExitTime, err = time.Parse(time.RFC3339, row[8]); err != nil {
		return TradeRecord{}, fmt.Errorf("exit_time: %w", err)
	}
	return rec, nil
}
