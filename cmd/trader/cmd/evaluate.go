package cmd

import (
	"fmt"
	"os"

	"github.com/rustyeddy/daytrader/evaluate"
	"github.com/rustyeddy/daytrader/journal"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a trade log (HPR, max drawdown, Sharpe)",
	Long: `Evaluate reads closed trades from a CSV trade log or from one run in the
SQLite journal and prints the holding period return, maximum drawdown and
daily Sharpe ratio.

Examples:
  trader evaluate --trades trades.csv
  trader evaluate --run 01HF3Y... --db daytrader.db`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

var (
	evTradesPath string
	evRunID      string
	evDBPath     string
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evTradesPath, "trades", "", "path to trades CSV")
	evaluateCmd.Flags().StringVar(&evRunID, "run", "", "run ID in the SQLite journal")
	evaluateCmd.Flags().StringVarP(&evDBPath, "db", "d", "", "SQLite journal path; overrides config")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var (
		recs    []journal.TradeRecord
		initial = decimal.NewFromFloat(cfg.Account.InitialCapital)
	)
	switch {
	case evTradesPath != "" && evRunID != "":
		return fmt.Errorf("use either --trades or --run, not both")

	case evTradesPath != "":
		f, err := os.Open(evTradesPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if recs, err = journal.ReadTradesCSV(f); err != nil {
			return fmt.Errorf("%s: %w", evTradesPath, err)
		}

	case evRunID != "":
		path := evDBPath
		if path == "" {
			path = cfg.Journal.DBPath
		}
		j, err := journal.NewSQLite(path)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer j.Close()

		run, err := j.GetRun(cmd.Context(), evRunID)
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		initial = run.InitialCapital
		if recs, err = j.ListTradesByRunID(cmd.Context(), evRunID); err != nil {
			return fmt.Errorf("query trades: %w", err)
		}

	default:
		return fmt.Errorf("one of --trades or --run is required")
	}

	logger.Info().Int("trades", len(recs)).Str("initial", initial.StringFixed(0)).Msg("evaluating")
	evaluate.PrintReport(cmd.OutOrStdout(), evaluate.Evaluate(initial, evaluate.FromRecords(recs)))
	return nil
}
