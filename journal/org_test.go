package journal

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/daytrader/internal/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	result := FormatTradeOrg(sampleTrade("01HRUNIDXYZ", 3, exit0, "253000"))

	assert.Contains(t, result, "** Trade: VN30F2311 long (01HRUNID)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":TRADE_ID: 01HRUNIDXYZ-0003")
	assert.Contains(t, result, ":RUN_ID: 01HRUNIDXYZ")
	assert.Contains(t, result, ":ENTRY_PRICE: 1000.0")
	assert.Contains(t, result, ":EXIT_PRICE: 1003.0")
	assert.Contains(t, result, ":ENTRY_TIME: 2023-11-01T09:15:00Z")
	assert.Contains(t, result, ":EXIT_TIME: 2023-11-01T09:19:00Z")
	assert.Contains(t, result, ":DEPOSIT: 21875000")
	assert.Contains(t, result, ":NET_POINTS: 2.53")
	assert.Contains(t, result, ":PROFIT_VND: 253000")
	assert.Contains(t, result, ":PROFIT_PCT: 1.157")
	assert.Contains(t, result, ":REASON: take_profit")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "*** Review")
}

func TestFormatTradeOrgShortID(t *testing.T) {
	t.Parallel()

	tr := sampleTrade("R", 1, exit0, "-147000")
	tr.TradeID = "short"
	result := FormatTradeOrg(tr)
	assert.Contains(t, result, "(short)")
	assert.Contains(t, result, ":PROFIT_VND: -147000")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	trades := []TradeRecord{
		sampleTrade("R1", 1, exit0, "253000"),
		sampleTrade("R1", 2, exit0.Add(time.Hour), "-147000"),
	}
	result := FormatTradesOrg(trades)

	assert.Equal(t, 2, strings.Count(result, "** Trade:"))
	assert.Contains(t, result, ":TRADE_ID: R1-0001")
	assert.Contains(t, result, ":TRADE_ID: R1-0002")
	assert.Contains(t, result, "\n\n\n** Trade:")

	assert.Empty(t, FormatTradesOrg(nil))
}

func TestWriteRunOrg(t *testing.T) {
	t.Parallel()

	r := RunRecord{
		RunID:            "R1",
		Created:          time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC),
		Strategy:         "reversal",
		TakeProfit:       dec("3"),
		StopLoss:         dec("-1"),
		SMAWindow:        50,
		TimeframeMinutes: 1,
		Start:            entry0,
		End:              exit0,
		Trades:           4,
		Wins:             3,
		Losses:           1,
		InitialCapital:   dec("100000000"),
		FinalTotal:       dec("100612000"),
		TotalProfit:      dec("612000"),
		UnrecordedProfit: dec("0"),
		HPRPct:           0.612,
		Sharpe:           math.NaN(),
		Notes:            []string{"margin never binding"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRunOrg(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "* BACKTEST: reversal 1m SMA(50)")
	assert.Contains(t, out, ":RUN_ID:      R1")
	assert.Contains(t, out, ":DATASET:     (dataset?)")
	assert.Contains(t, out, ":NET_PL:      612000")
	assert.Contains(t, out, ":WIN_RATE:    75.00")
	assert.Contains(t, out, ":SHARPE:      (undefined)")
	assert.Contains(t, out, ":CREATED:     [2024-01-02 Tue 03:04]")
	assert.Contains(t, out, "- margin never binding")
	assert.NotContains(t, out, "Unrecorded")

	r.RunID = id.NewAt(time.Date(2023, 11, 1, 15, 30, 0, 0, time.UTC))
	r.Created = time.Time{}
	buf.Reset()
	require.NoError(t, WriteRunOrg(&buf, r))
	assert.Contains(t, buf.String(), ":CREATED:     [2023-11-01 Wed 15:30]", "falls back to the run ID's timestamp")
}
