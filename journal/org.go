package journal

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/daytrader/internal/id"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block suitable for pasting into a journal.
// Structured facts go in a PROPERTIES drawer for easy search; the review heading is left blank.
func FormatTradeOrg(t TradeRecord) string {
	heading := fmt.Sprintf("** Trade: %s %s (%s)", t.Symbol, t.Direction, shortID(t.TradeID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":TRADE_ID: %s\n", t.TradeID))
	b.WriteString(fmt.Sprintf(":RUN_ID: %s\n", t.RunID))
	b.WriteString(fmt.Sprintf(":SYMBOL: %s\n", t.Symbol))
	b.WriteString(fmt.Sprintf(":DIRECTION: %s\n", t.Direction))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %s\n", t.EntryPrice.StringFixed(1)))
	b.WriteString(fmt.Sprintf(":EXIT_PRICE: %s\n", t.ExitPrice.StringFixed(1)))
	b.WriteString(fmt.Sprintf(":ENTRY_TIME: %s\n", t.EntryTime.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(":EXIT_TIME: %s\n", t.ExitTime.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(":DEPOSIT: %s\n", t.Deposit.StringFixed(0)))
	b.WriteString(fmt.Sprintf(":NET_POINTS: %s\n", t.NetPoints.StringFixed(2)))
	b.WriteString(fmt.Sprintf(":PROFIT_VND: %s\n", t.Profit.StringFixed(0)))
	b.WriteString(fmt.Sprintf(":PROFIT_PCT: %s\n", t.ProfitPct.Shift(2).StringFixed(3)))
	b.WriteString(fmt.Sprintf(":REASON: %s\n", t.Reason))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}

// runCreated is when the run was recorded, read back from the run ID when
// the record lacks it.
func runCreated(r RunRecord) time.Time {
	if !r.Created.IsZero() {
		return r.Created
	}
	if t, err := id.Time(r.RunID); err == nil {
		return t
	}
	return time.Now()
}

var runOrgFuncs = template.FuncMap{
	"created": runCreated,
	"sharpe": func(x float64) string {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "(undefined)"
		}
		return fmt.Sprintf("%.4f", x)
	},
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// WriteRunOrg renders a run report as an Org-mode heading.
func WriteRunOrg(w io.Writer, r RunRecord) error {
	return runOrg.Execute(w, r)
}

const RunOrgTemplate = `
* BACKTEST: {{.Strategy}} {{.TimeframeMinutes}}m SMA({{.SMAWindow}})
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:START_CAP:   {{.InitialCapital.StringFixed 0}}
:END_CAP:     {{.FinalTotal.StringFixed 0}}
:NET_PL:      {{.TotalProfit.StringFixed 0}}
:HPR_PCT:     {{printf "%.2f" .HPRPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:SHARPE:      {{sharpe .Sharpe}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:REJECTED:    {{.Rejected}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:CREATED:     [{{(created .).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter         | Value |
|-------------------+-------|
| Take profit (pts) | {{.TakeProfit}} |
| Stop loss (pts)   | {{.StopLoss}} |
| SMA window        | {{.SMAWindow}} |
| Timeframe (min)   | {{.TimeframeMinutes}} |

** Performance Summary
- Total Profit:     *{{.TotalProfit.StringFixed 0}} VND*
- HPR:              *{{printf "%.2f" .HPRPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Sharpe (daily):   *{{sharpe .Sharpe}}*
{{- if not .UnrecordedProfit.IsZero }}
- Unrecorded P/L:   *{{.UnrecordedProfit.StringFixed 0}} VND*
{{- end }}

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
