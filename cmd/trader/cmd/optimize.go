package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rustyeddy/daytrader/backtest"
	"github.com/rustyeddy/daytrader/evaluate"
	"github.com/rustyeddy/daytrader/market"
	"github.com/rustyeddy/daytrader/optimize"
	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Random-search strategy parameters on the in-sample ticks",
	Long: `Optimize splits the ticks into an in-sample prefix and an out-of-sample
remainder, backtests random parameter sets on the in-sample part, and picks
the most profitable set with enough trades. The winner is then replayed on
the out-of-sample part.

Examples:
  trader optimize --ticks ticks.csv --seed 7
  trader optimize --ticks ticks.csv --trials 200 --save tuned.yaml`,
	Args: cobra.NoArgs,
	RunE: runOptimize,
}

var (
	optTicksPath string
	optTrials    int
	optSeed      int64
	optWorkers   int
	optMinTrades int
	optLogFile   string
	optSavePath  string
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVarP(&optTicksPath, "ticks", "t", "", "path to tick CSV (required)")
	optimizeCmd.Flags().IntVarP(&optTrials, "trials", "n", optimize.DefaultTrials, "number of parameter sets to try")
	optimizeCmd.Flags().Int64Var(&optSeed, "seed", 0, "rng seed (random when unset)")
	optimizeCmd.Flags().IntVarP(&optWorkers, "workers", "w", 0, "parallel backtests (0 = GOMAXPROCS)")
	optimizeCmd.Flags().IntVar(&optMinTrades, "min-trades", optimize.DefaultMinTrades, "a set needs more trades than this to win (0 accepts any set that traded)")
	optimizeCmd.Flags().StringVar(&optLogFile, "log-file", "optimization_log.txt", "per-trial log (empty to skip)")
	optimizeCmd.Flags().StringVar(&optSavePath, "save", "", "write the config with the best parameters to this file")

	optimizeCmd.MarkFlagRequired("ticks")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ticks, err := readTicks(cfg, optTicksPath)
	if err != nil {
		return err
	}
	in, outSample, err := market.SplitSample(ticks, cfg.Data.InSampleRatio)
	if err != nil {
		return err
	}

	seed := optSeed
	if !cmd.Flags().Changed("seed") {
		seed = time.Now().UnixNano()
	}
	logger.Info().
		Int64("seed", seed).
		Int("in_sample", len(in)).
		Int("out_of_sample", len(outSample)).
		Int("trials", optTrials).
		Msg("optimization started")

	search := &optimize.Search{
		Base:      cfg.Backtest(),
		Ticks:     in,
		Space:     optimize.DefaultSpace(),
		Trials:    optTrials,
		Seed:      seed,
		Workers:   optWorkers,
		MinTrades: optMinTrades,
		Log:       logger,
	}
	res, err := search.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	if optLogFile != "" {
		err := writeFile(optLogFile, func(f *os.File) error {
			return optimize.WriteLog(f, res.Trials)
		})
		if err != nil {
			return fmt.Errorf("write log: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seed: %d\n", seed)
	if res.Best == nil {
		fmt.Fprintf(out, "No parameter set made more than %d trades.\n", optMinTrades)
		return nil
	}

	best := res.Best
	params, err := json.Marshal(best.Params)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Best params: %s\n", params)
	fmt.Fprintf(out, "In-sample Total Profit: %s VND, Total Trades: %d, Sharpe Ratio: %s\n",
		best.Summary.TotalProfit.StringFixed(0), best.Summary.TradeCount, evaluate.FormatSharpe(best.Sharpe))

	tuned := best.Params.Apply(cfg.Backtest())
	if len(outSample) > 0 {
		if err := replayOutOfSample(cmd, tuned, outSample); err != nil {
			return err
		}
	}

	if optSavePath != "" {
		cfg.Strategy.SMAWindow = best.Params.SMAWindow
		cfg.Strategy.TakeProfit = best.Params.TakeProfit
		cfg.Strategy.StopLoss = best.Params.StopLoss
		cfg.Strategy.TimeframeMinutes = best.Params.TimeframeMinutes
		if err := cfg.SaveToFile(optSavePath); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintf(out, "\n✓ Saved tuned configuration: %s\n", optSavePath)
	}
	return nil
}

func replayOutOfSample(cmd *cobra.Command, bt backtest.Config, ticks []market.Tick) error {
	candles, err := backtest.Prepare(ticks, bt)
	if err != nil {
		return err
	}
	engine, err := backtest.New(bt, backtest.WithLogger(logger))
	if err != nil {
		return err
	}
	rep, err := (&backtest.Runner{Engine: engine, Dataset: "out-of-sample", Log: logger}).Run(cmd.Context(), candles)
	if err != nil {
		return fmt.Errorf("out-of-sample: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nOut-of-sample:")
	backtest.PrintSummary(out, rep.Result.Summary)
	fmt.Fprintln(out)
	evaluate.PrintReport(out, rep.Report)
	return nil
}
