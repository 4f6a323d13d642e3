package backtest

import (
	"fmt"
	"io"
	"time"
)

// PrintSummary writes a human readable run report.
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", s.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", s.End.Format(time.RFC3339))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", s.TradeCount)
	fmt.Fprintf(w, "Wins:          %d\n", s.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", s.Losses)
	if s.TradeCount > 0 {
		fmt.Fprintf(w, "Win Rate:      %.2f%%\n", float64(s.Wins)/float64(s.TradeCount)*100)
	}
	if s.Rejected > 0 {
		fmt.Fprintf(w, "Rejected:      %d (insufficient margin)\n", s.Rejected)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Capital: %s VND\n", s.InitialCapital.StringFixed(0))
	fmt.Fprintf(w, "End Capital:   %s VND\n", s.FinalTotal.StringFixed(0))
	if !s.UnrecordedProfit.IsZero() {
		fmt.Fprintf(w, "Unrecorded:    %s VND\n", s.UnrecordedProfit.StringFixed(0))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total Profit: %s VND\n", s.TotalProfit.StringFixed(0))
}
