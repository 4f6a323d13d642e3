package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/daytrader/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// logger is set up by the root command before any subcommand runs.
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Backtest and tune intraday strategies on VN30 index futures",
	Long: `Trader replays matched-trade ticks of VN30 index futures through a
margin-aware simulator.

It provides tools for:
  - Fetching ticks from the quote database
  - Resampling ticks into SMA-annotated candles
  - Backtesting the three-bar reversal strategy
  - Random-search parameter optimization
  - Evaluating trade logs (HPR, drawdown, Sharpe)
  - Querying the trade journal`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd.ErrOrStderr())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// An interrupt cancels the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON; built-in defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error, disabled)")
}

func setupLogging(w io.Writer) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(logLevel)))
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().Timestamp().
		Logger()
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("file", cfgFile).Msg("config loaded")
	return cfg, nil
}
