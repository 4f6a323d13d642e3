// Package evaluate computes performance metrics from a trade log.
//
// All metrics work on the capital curve: initial capital plus the
// cumulative profit of trades ordered by exit time.
package evaluate

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rustyeddy/daytrader/journal"
	"github.com/rustyeddy/daytrader/sim"
	"github.com/shopspring/decimal"
)

const (
	// RiskFreeAnnual is the annual risk-free rate used by Evaluate.
	RiskFreeAnnual = 0.03
	// TradingDays annualizes daily statistics.
	TradingDays = 252
)

// Closed is the part of a trade the metrics need.
type Closed struct {
	ExitTime time.Time
	Profit   decimal.Decimal
}

func FromTrades(trades []sim.Trade) []Closed {
	out := make([]Closed, 0, len(trades))
	for _, t := range trades {
		out = append(out, Closed{ExitTime: t.ExitTime, Profit: t.Profit})
	}
	return out
}

func FromRecords(recs []journal.TradeRecord) []Closed {
	out := make([]Closed, 0, len(recs))
	for _, r := range recs {
		out = append(out, Closed{ExitTime: r.ExitTime, Profit: r.Profit})
	}
	return out
}

// Point is the account capital right after a trade exit.
type Point struct {
	Time    time.Time
	Capital decimal.Decimal
}

// CapitalCurve returns one point per trade in exit order. Trades with
// equal exit times keep their input order. Trades without an exit time
// are skipped.
func CapitalCurve(initial decimal.Decimal, closed []Closed) []Point {
	sorted := make([]Closed, 0, len(closed))
	for _, c := range closed {
		if !c.ExitTime.IsZero() {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExitTime.Before(sorted[j].ExitTime)
	})

	out := make([]Point, 0, len(sorted))
	capital := initial
	for _, c := range sorted {
		capital = capital.Add(c.Profit)
		out = append(out, Point{Time: c.ExitTime, Capital: capital})
	}
	return out
}

// HPR is the holding period return in percent.
func HPR(initial decimal.Decimal, closed []Closed) float64 {
	if initial.IsZero() {
		return 0
	}
	total := decimal.Zero
	for _, c := range closed {
		total = total.Add(c.Profit)
	}
	return total.Div(initial).Shift(2).InexactFloat64()
}

// MaxDrawdown is the largest peak-to-trough drop of the capital curve as a
// percentage of the highest peak. The initial capital is not a peak; only
// post-trade capital counts.
func MaxDrawdown(initial decimal.Decimal, closed []Closed) float64 {
	curve := CapitalCurve(initial, closed)
	if len(curve) == 0 {
		return 0
	}

	peak := curve[0].Capital
	maxPeak := peak
	maxDD := decimal.Zero
	for _, p := range curve {
		if p.Capital.GreaterThan(peak) {
			peak = p.Capital
		}
		if peak.GreaterThan(maxPeak) {
			maxPeak = peak
		}
		if dd := peak.Sub(p.Capital); dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	if maxPeak.IsZero() {
		return 0
	}
	return maxDD.Div(maxPeak).Shift(2).InexactFloat64()
}

// DailyEquity takes the last capital of each calendar day and
// forward-fills every day between the first and last exit date.
func DailyEquity(initial decimal.Decimal, closed []Closed) []Point {
	curve := CapitalCurve(initial, closed)
	if len(curve) == 0 {
		return nil
	}

	last := map[string]decimal.Decimal{}
	for _, p := range curve {
		last[dayKey(p.Time)] = p.Capital
	}

	first, end := day(curve[0].Time), day(curve[len(curve)-1].Time)
	var out []Point
	capital := curve[0].Capital
	for d := first; !d.After(end); d = d.AddDate(0, 0, 1) {
		if c, ok := last[dayKey(d)]; ok {
			capital = c
		}
		out = append(out, Point{Time: d, Capital: capital})
	}
	return out
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SharpeDaily is the annualized Sharpe ratio of daily returns in excess of
// riskFreeAnnual/252. The first day's return is zero. It is NaN when there
// are fewer than two days or the returns have no variance.
func SharpeDaily(initial decimal.Decimal, closed []Closed, riskFreeAnnual float64) float64 {
	daily := DailyEquity(initial, closed)
	if len(daily) < 2 {
		return math.NaN()
	}

	rf := riskFreeAnnual / TradingDays
	excess := make([]float64, len(daily))
	excess[0] = -rf
	for i := 1; i < len(daily); i++ {
		prev := daily[i-1].Capital.InexactFloat64()
		cur := daily[i].Capital.InexactFloat64()
		excess[i] = (cur-prev)/prev - rf
	}

	m := mean(excess)
	sd := math.Sqrt(variance(excess, m))
	if sd == 0 || math.IsNaN(sd) {
		return math.NaN()
	}
	return m / sd * math.Sqrt(TradingDays)
}

func mean(a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range a {
		s += x
	}
	return s / float64(len(a))
}

// sample variance
func variance(a []float64, m float64) float64 {
	if len(a) <= 1 {
		return 0
	}
	s := 0.0
	for _, x := range a {
		d := x - m
		s += d * d
	}
	return s / float64(len(a)-1)
}

// Report bundles every metric for one trade log.
type Report struct {
	Trades         int
	InitialCapital decimal.Decimal
	TotalProfit    decimal.Decimal
	FinalCapital   decimal.Decimal
	HPRPct         float64
	MaxDDPct       float64
	Sharpe         float64 // NaN when undefined
}

// Evaluate computes a Report using RiskFreeAnnual.
func Evaluate(initial decimal.Decimal, closed []Closed) Report {
	total := decimal.Zero
	for _, c := range closed {
		total = total.Add(c.Profit)
	}
	return Report{
		Trades:         len(closed),
		InitialCapital: initial,
		TotalProfit:    total,
		FinalCapital:   initial.Add(total),
		HPRPct:         HPR(initial, closed),
		MaxDDPct:       MaxDrawdown(initial, closed),
		Sharpe:         SharpeDaily(initial, closed, RiskFreeAnnual),
	}
}

// PrintReport writes the report in the evaluator's line format.
func PrintReport(w io.Writer, r Report) {
	fmt.Fprintf(w, "Initial Capital: %s VND\n", r.InitialCapital.StringFixed(0))
	fmt.Fprintf(w, "Final Capital: %s VND\n", r.FinalCapital.StringFixed(0))
	fmt.Fprintf(w, "Holding Period Return (HPR): %.2f%%\n", r.HPRPct)
	fmt.Fprintf(w, "Maximum Drawdown (MDD): %.2f%%\n", r.MaxDDPct)
	fmt.Fprintf(w, "Daily-based Sharpe Ratio: %s\n", FormatSharpe(r.Sharpe))
}

// FormatSharpe prints NaN as "nan" and everything else to four places.
func FormatSharpe(x float64) string {
	if math.IsNaN(x) {
		return "nan"
	}
	return strconv.FormatFloat(x, 'f', 4, 64)
}
