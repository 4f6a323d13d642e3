package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/rustyeddy/daytrader/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with fresh flag values and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if s, ok := f.Value.(pflag.SliceValue); ok {
			_ = s.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// Three falling minutes, then a minute that closes above the last high and
// above its two-candle SMA: one long entry at 1004, taken profit at 1010.
const reversalTicks = `datetime,tickersymbol,price
2023-11-01 09:00:00,VN30F2311,1010
2023-11-01 09:00:30,VN30F2311,1005
2023-11-01 09:01:00,VN30F2311,1005
2023-11-01 09:01:30,VN30F2311,1002
2023-11-01 09:02:00,VN30F2311,1002
2023-11-01 09:02:30,VN30F2311,1000
2023-11-01 09:03:00,VN30F2311,1000
2023-11-01 09:03:30,VN30F2311,1004
2023-11-01 09:04:00,VN30F2311,1006
2023-11-01 09:04:30,VN30F2311,1010
`

type fixture struct {
	dir    string
	cfg    string
	ticks  string
	trades string
	db     string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	fx := fixture{
		dir:    dir,
		cfg:    filepath.Join(dir, "daytrader.yaml"),
		ticks:  filepath.Join(dir, "ticks.csv"),
		trades: filepath.Join(dir, "trades.csv"),
		db:     filepath.Join(dir, "journal.db"),
	}

	cfg := config.Default()
	cfg.Data.Timezone = "UTC"
	cfg.Strategy.SMAWindow = 2
	cfg.Journal = config.JournalConfig{
		Type:       "csv",
		TradesFile: fx.trades,
		EquityFile: filepath.Join(dir, "equity.csv"),
	}
	require.NoError(t, cfg.SaveToFile(fx.cfg))
	require.NoError(t, os.WriteFile(fx.ticks, []byte(reversalTicks), 0644))
	return fx
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "trader version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "init.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")
	assert.FileExists(t, path)

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "Strategy: reversal (TP 3, SL -1, SMA 50, 1m)")
	assert.Contains(t, out, "Journal: sqlite")

	_, err = execute(t, "config", "validate")
	assert.Error(t, err, "--file is required")
}

func TestBacktestCSVJournalThenEvaluate(t *testing.T) {
	fx := newFixture(t)

	out, err := execute(t, "--config", fx.cfg, "--log-level", "disabled", "backtest", "--ticks", fx.ticks)
	require.NoError(t, err)
	assert.Contains(t, out, "Trades:        1\n")
	assert.Contains(t, out, "Wins:          1\n")
	assert.Contains(t, out, "Initial Capital: 100000000 VND")
	assert.Contains(t, out, "Daily-based Sharpe Ratio: nan")
	assert.Contains(t, out, "(journal: csv)")

	data, err := os.ReadFile(fx.trades)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "trade_id,run_id,symbol,direction"))
	assert.Contains(t, lines[1], ",VN30F2311,long,1004,")

	out, err = execute(t, "--config", fx.cfg, "evaluate", "--trades", fx.trades)
	require.NoError(t, err)
	assert.Contains(t, out, "Initial Capital: 100000000 VND")
	assert.Contains(t, out, "Holding Period Return (HPR): ")
	assert.NotContains(t, out, "Final Capital: 100000000 VND")
}

func TestBacktestSQLiteThenJournal(t *testing.T) {
	fx := newFixture(t)

	out, err := execute(t, "--config", fx.cfg, "--log-level", "disabled", "backtest", "-t", fx.ticks, "--db", fx.db, "--audit")
	require.NoError(t, err)
	m := regexp.MustCompile(`Run ID: (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	runID := m[1]

	out, err = execute(t, "--config", fx.cfg, "journal", "--db", fx.db, "run", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "* BACKTEST: reversal 1m SMA(2)")
	assert.Contains(t, out, ":RUN_ID:      "+runID)
	assert.Contains(t, out, "** Trade: VN30F2311 long")

	out, err = execute(t, "--config", fx.cfg, "journal", "--db", fx.db, "trade", runID+"-0001")
	require.NoError(t, err)
	assert.Contains(t, out, ":TRADE_ID:")

	out, err = execute(t, "--config", fx.cfg, "journal", "--db", fx.db, "day", "2023-11-01")
	require.NoError(t, err)
	assert.Contains(t, out, "VN30F2311")

	out, err = execute(t, "--config", fx.cfg, "journal", "--db", fx.db, "day", "2023-11-02")
	require.NoError(t, err)
	assert.NotContains(t, out, "VN30F2311")

	out, err = execute(t, "--config", fx.cfg, "evaluate", "--run", runID, "--db", fx.db)
	require.NoError(t, err)
	assert.Contains(t, out, "Initial Capital: 100000000 VND")

	_, err = execute(t, "--config", fx.cfg, "journal", "--db", fx.db, "trade", "missing")
	assert.Error(t, err)
}

func TestDataCandlesThenBacktest(t *testing.T) {
	fx := newFixture(t)
	candles := filepath.Join(fx.dir, "candles.json")

	out, err := execute(t, "--config", fx.cfg, "data", "candles", "--ticks", fx.ticks, "-o", candles)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 5 candles")

	out, err = execute(t, "--config", fx.cfg, "backtest", "--candles", candles, "-s", "noop")
	require.NoError(t, err)
	assert.Contains(t, out, "Trades:        0\n")

	out, err = execute(t, "--config", fx.cfg, "data", "candles", "--ticks", fx.ticks, "--split", "--dir", fx.dir)
	require.NoError(t, err)
	assert.Contains(t, out, "in-sample.json")
	assert.FileExists(t, filepath.Join(fx.dir, "out-sample.json"))
}

func TestCommandErrors(t *testing.T) {
	fx := newFixture(t)

	_, err := execute(t, "--config", fx.cfg, "backtest")
	assert.Error(t, err, "needs an input")

	_, err = execute(t, "--config", fx.cfg, "backtest", "-t", fx.ticks, "-c", "x.json")
	assert.Error(t, err, "two inputs")

	_, err = execute(t, "--config", fx.cfg, "evaluate")
	assert.Error(t, err)

	_, err = execute(t, "--log-level", "loud", "version")
	assert.Error(t, err)

	_, err = execute(t, "--config", filepath.Join(fx.dir, "missing.yaml"), "backtest", "-t", fx.ticks)
	assert.Error(t, err)

	_, err = execute(t, "--config", fx.cfg, "--log-level", "disabled", "optimize", "-t", fx.ticks, "-n", "2", "--min-trades=-1", "--log-file", "")
	assert.ErrorContains(t, err, "min trades must not be negative")
}

func TestOptimizeWritesLogAndConfig(t *testing.T) {
	fx := newFixture(t)
	logFile := filepath.Join(fx.dir, "optimization_log.txt")
	saved := filepath.Join(fx.dir, "tuned.yaml")

	out, err := execute(t, "--config", fx.cfg, "--log-level", "disabled", "optimize",
		"-t", fx.ticks, "-n", "5", "--seed", "7", "--log-file", logFile, "--save", saved)
	require.NoError(t, err)
	assert.Contains(t, out, "Seed: 7")
	// a handful of ticks never clears the minimum trade count
	assert.Contains(t, out, "No parameter set made more than 10 trades.")
	assert.NoFileExists(t, saved)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(string(data), "Tested params "))
}
