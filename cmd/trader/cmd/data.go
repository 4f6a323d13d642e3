package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rustyeddy/daytrader/backtest"
	"github.com/rustyeddy/daytrader/ingest"
	"github.com/rustyeddy/daytrader/market"
	"github.com/spf13/cobra"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Fetch ticks and build candle files",
	Long: `Manage market data.

Subcommands:
  fetch   - Download matched-trade ticks from the quote database
  candles - Resample a tick CSV into SMA-annotated candle JSON

Examples:
  trader data fetch -o ticks.csv
  trader data candles --ticks ticks.csv --split --dir data/`,
}

var dataFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download ticks from the quote database",
	Long: `Fetch reads DATABASE_URL (from the environment or a .env file) and
downloads every tick whose symbol starts with data.symbol_prefix since
data.since.`,
	Args: cobra.NoArgs,
	RunE: runDataFetch,
}

var dataCandlesCmd = &cobra.Command{
	Use:   "candles",
	Short: "Resample ticks into candle JSON",
	Args:  cobra.NoArgs,
	RunE:  runDataCandles,
}

var (
	fetchOutput  string
	fetchEnvFile []string
	fetchPrefix  string
	fetchSince   string

	candlesTicks  string
	candlesOutput string
	candlesSplit  bool
	candlesDir    string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataFetchCmd)
	dataCmd.AddCommand(dataCandlesCmd)

	dataFetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "ticks.csv", "output tick CSV")
	dataFetchCmd.Flags().StringSliceVar(&fetchEnvFile, "env-file", nil, "env files to load (default ./.env if present)")
	dataFetchCmd.Flags().StringVar(&fetchPrefix, "prefix", "", "symbol prefix; overrides config")
	dataFetchCmd.Flags().StringVar(&fetchSince, "since", "", "first day (YYYY-MM-DD); overrides config")

	dataCandlesCmd.Flags().StringVarP(&candlesTicks, "ticks", "t", "", "input tick CSV (required)")
	dataCandlesCmd.Flags().StringVarP(&candlesOutput, "output", "o", "candles.json", "output candle JSON")
	dataCandlesCmd.Flags().BoolVar(&candlesSplit, "split", false, "write in-sample.json and out-sample.json instead")
	dataCandlesCmd.Flags().StringVar(&candlesDir, "dir", ".", "directory for --split output")
	dataCandlesCmd.MarkFlagRequired("ticks")
}

func runDataFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if fetchPrefix != "" {
		cfg.Data.SymbolPrefix = fetchPrefix
	}
	if fetchSince != "" {
		cfg.Data.Since = fetchSince
	}
	since, err := cfg.SinceTime()
	if err != nil {
		return fmt.Errorf("since: %w", err)
	}

	dsn, err := ingest.DSNFromEnv(fetchEnvFile...)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	pool, err := ingest.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	src := &ingest.TickSource{DB: pool, Log: logger}
	ticks, err := src.FetchTicks(ctx, ingest.Query{SymbolPrefix: cfg.Data.SymbolPrefix, Since: since})
	if err != nil {
		return err
	}

	err = writeFile(fetchOutput, func(f *os.File) error {
		return market.WriteTicksCSV(f, ticks)
	})
	if err != nil {
		return fmt.Errorf("write ticks: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Total number of tick: %d (%s)\n", len(ticks), fetchOutput)
	return nil
}

func runDataCandles(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ticks, err := readTicks(cfg, candlesTicks)
	if err != nil {
		return err
	}
	bt := cfg.Backtest()
	out := cmd.OutOrStdout()

	if !candlesSplit {
		n, err := writeCandles(candlesOutput, ticks, bt)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d candles to %s\n", n, candlesOutput)
		return nil
	}

	in, outSample, err := market.SplitSample(ticks, cfg.Data.InSampleRatio)
	if err != nil {
		return err
	}
	for _, part := range []struct {
		name  string
		ticks []market.Tick
	}{
		{"in-sample.json", in},
		{"out-sample.json", outSample},
	} {
		path := filepath.Join(candlesDir, part.name)
		n, err := writeCandles(path, part.ticks, bt)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d candles to %s\n", n, path)
	}
	return nil
}

func writeCandles(path string, ticks []market.Tick, bt backtest.Config) (int, error) {
	candles, err := backtest.Prepare(ticks, bt)
	if err != nil {
		return 0, err
	}
	err = writeFile(path, func(f *os.File) error {
		return market.WriteCandlesJSON(f, candles)
	})
	if err != nil {
		return 0, fmt.Errorf("write candles: %w", err)
	}
	return len(candles), nil
}
