package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/rustyeddy/daytrader/backtest"
	"github.com/rustyeddy/daytrader/evaluate"
	"github.com/spf13/cobra"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the strategy over ticks or candles",
	Long: `Backtest replays a candle feed through the margin-aware simulator and
records every trade in the configured journal.

Input is either a tick CSV (datetime,tickersymbol,price), resampled with the
configured timeframe and SMA window, or a candle JSON file written by
"trader data candles".

Examples:
  trader backtest --ticks ticks.csv
  trader backtest --config daytrader.yaml --candles out-sample.json`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

var (
	btTicksPath   string
	btCandlesPath string
	btStrategy    string
	btDBPath      string
	btAudit       bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btTicksPath, "ticks", "t", "", "path to tick CSV")
	backtestCmd.Flags().StringVarP(&btCandlesPath, "candles", "c", "", "path to candle JSON")
	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "", "strategy name (reversal, noop); overrides config")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "SQLite journal path; overrides config")
	backtestCmd.Flags().BoolVar(&btAudit, "audit", false, "check ledger invariants after every candle")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if btStrategy != "" {
		cfg.Strategy.Name = btStrategy
	}
	if btDBPath != "" {
		cfg.Journal.Type = "sqlite"
		cfg.Journal.DBPath = btDBPath
	}

	bt := cfg.Backtest()
	candles, err := loadCandles(cfg, bt, btTicksPath, btCandlesPath)
	if err != nil {
		return err
	}

	opts := []backtest.Option{backtest.WithLogger(logger)}
	if btAudit {
		opts = append(opts, backtest.WithAudit())
	}
	engine, err := backtest.New(bt, opts...)
	if err != nil {
		return err
	}

	j, err := cfg.OpenJournal()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	runner := &backtest.Runner{
		Engine:  engine,
		Journal: j,
		Dataset: filepath.Base(btTicksPath + btCandlesPath),
		Log:     logger,
	}
	rep, err := runner.Run(cmd.Context(), candles)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	out := cmd.OutOrStdout()
	backtest.PrintSummary(out, rep.Result.Summary)
	fmt.Fprintln(out)
	evaluate.PrintReport(out, rep.Report)
	fmt.Fprintf(out, "\nRun ID: %s (journal: %s)\n", rep.RunID, cfg.Journal.Type)
	return nil
}
