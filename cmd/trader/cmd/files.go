package cmd

import (
	"fmt"
	"os"

	"github.com/rustyeddy/daytrader/backtest"
	"github.com/rustyeddy/daytrader/config"
	"github.com/rustyeddy/daytrader/market"
)

// readTicks loads a tick CSV in the configured timezone and, when the
// config asks for it, keeps only the front-month contract.
func readTicks(cfg *config.Config, path string) ([]market.Tick, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ticks, err := market.ReadTicksCSV(f, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	n := len(ticks)
	if cfg.Data.FrontMonth {
		ticks = market.FrontMonth(ticks)
	}
	logger.Info().Str("file", path).Int("ticks", n).Int("kept", len(ticks)).Msg("ticks loaded")
	return ticks, nil
}

func readCandles(cfg *config.Config, path string) ([]market.Candle, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	candles, err := market.ReadCandlesJSON(f, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Info().Str("file", path).Int("candles", len(candles)).Msg("candles loaded")
	return candles, nil
}

// loadCandles returns candles from exactly one of a tick CSV (resampled
// and annotated with bt's timeframe and SMA) or a candle JSON file.
func loadCandles(cfg *config.Config, bt backtest.Config, ticksPath, candlesPath string) ([]market.Candle, error) {
	switch {
	case ticksPath != "" && candlesPath != "":
		return nil, fmt.Errorf("use either --ticks or --candles, not both")
	case ticksPath != "":
		ticks, err := readTicks(cfg, ticksPath)
		if err != nil {
			return nil, err
		}
		return backtest.Prepare(ticks, bt)
	case candlesPath != "":
		return readCandles(cfg, candlesPath)
	}
	return nil, fmt.Errorf("one of --ticks or --candles is required")
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
