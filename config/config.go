package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/daytrader/backtest"
	"github.com/rustyeddy/daytrader/journal"
	"github.com/rustyeddy/daytrader/market"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the complete backtest configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Contract ContractConfig `json:"contract" yaml:"contract"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	Currency       string  `json:"currency" yaml:"currency"`
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
}

// ContractConfig describes the futures contract and its costs
type ContractConfig struct {
	Multiplier          float64 `json:"multiplier" yaml:"multiplier"`
	MarginRatio         float64 `json:"margin_ratio" yaml:"margin_ratio"`
	MarginAdequacyRatio float64 `json:"margin_adequacy_ratio" yaml:"margin_adequacy_ratio"`
	FeePoints           float64 `json:"fee_points" yaml:"fee_points"`
}

// StrategyConfig contains strategy parameters
type StrategyConfig struct {
	Name             string  `json:"name" yaml:"name"`
	TakeProfit       float64 `json:"take_profit" yaml:"take_profit"`
	StopLoss         float64 `json:"stop_loss" yaml:"stop_loss"`
	SMAWindow        int     `json:"sma_window" yaml:"sma_window"`
	TimeframeMinutes int     `json:"time_frame" yaml:"time_frame"`
}

// DataConfig says where ticks come from and how they are cut
type DataConfig struct {
	Timezone      string  `json:"timezone" yaml:"timezone"`
	SymbolPrefix  string  `json:"symbol_prefix" yaml:"symbol_prefix"`
	Since         string  `json:"since" yaml:"since"` // 2006-01-02
	InSampleRatio float64 `json:"in_sample_ratio" yaml:"in_sample_ratio"`
	FrontMonth    bool    `json:"front_month" yaml:"front_month"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("account.initial_capital must be positive")
	}
	if c.Contract.Multiplier <= 0 {
		return fmt.Errorf("contract.multiplier must be positive")
	}
	if c.Contract.MarginRatio <= 0 {
		return fmt.Errorf("contract.margin_ratio must be positive")
	}
	if c.Contract.MarginAdequacyRatio <= 0 {
		return fmt.Errorf("contract.margin_adequacy_ratio must be positive")
	}
	if c.Contract.FeePoints < 0 {
		return fmt.Errorf("contract.fee_points must not be negative")
	}
	if c.Strategy.StopLoss >= c.Strategy.TakeProfit {
		return fmt.Errorf("strategy.stop_loss must be below strategy.take_profit")
	}
	if c.Strategy.SMAWindow < 1 {
		return fmt.Errorf("strategy.sma_window must be at least 1")
	}
	if c.Strategy.TimeframeMinutes < 1 {
		return fmt.Errorf("strategy.time_frame must be at least 1 minute")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("data.timezone: %w", err)
	}
	if c.Data.Since != "" {
		if _, err := c.SinceTime(); err != nil {
			return fmt.Errorf("data.since: %w", err)
		}
	}
	if c.Data.InSampleRatio <= 0 || c.Data.InSampleRatio >= 1 {
		return fmt.Errorf("data.in_sample_ratio must be between 0 and 1")
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	return nil
}

// Location is the exchange timezone used to read naive timestamps and to
// decide where one trading day ends.
func (c *Config) Location() (*time.Location, error) {
	if c.Data.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Data.Timezone)
}

// SinceTime is the first day of data to fetch, in Location.
func (c *Config) SinceTime() (time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, err
	}
	return market.ParseTime(c.Data.Since, loc)
}

// Backtest maps the file layout onto the engine configuration.
func (c *Config) Backtest() backtest.Config {
	return backtest.Config{
		InitialCapital:      decimal.NewFromFloat(c.Account.InitialCapital),
		ContractMultiplier:  decimal.NewFromFloat(c.Contract.Multiplier),
		MarginRatio:         decimal.NewFromFloat(c.Contract.MarginRatio),
		MarginAdequacyRatio: decimal.NewFromFloat(c.Contract.MarginAdequacyRatio),
		FeePoints:           decimal.NewFromFloat(c.Contract.FeePoints),
		TakeProfitPoints:    decimal.NewFromFloat(c.Strategy.TakeProfit),
		StopLossPoints:      decimal.NewFromFloat(c.Strategy.StopLoss),
		IndicatorWindow:     c.Strategy.SMAWindow,
		TimeframeMinutes:    c.Strategy.TimeframeMinutes,
		Strategy:            c.Strategy.Name,
	}
}

// OpenJournal opens the configured journal backend.
func (c *Config) OpenJournal() (journal.Journal, error) {
	switch c.Journal.Type {
	case "csv":
		return journal.NewCSV(c.Journal.TradesFile, c.Journal.EquityFile)
	case "sqlite":
		return journal.NewSQLite(c.Journal.DBPath)
	default:
		return journal.Discard{}, nil
	}
}

// Default returns the VN30 futures setup with the journal in SQLite.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency:       "VND",
			InitialCapital: 100_000_000,
		},
		Contract: ContractConfig{
			Multiplier:          100_000,
			MarginRatio:         0.175,
			MarginAdequacyRatio: 0.8,
			FeePoints:           0.47,
		},
		Strategy: StrategyConfig{
			Name:             "reversal",
			TakeProfit:       3,
			StopLoss:         -1,
			SMAWindow:        50,
			TimeframeMinutes: 1,
		},
		Data: DataConfig{
			Timezone:      "Asia/Ho_Chi_Minh",
			SymbolPrefix:  "VN30F23",
			Since:         "2023-01-01",
			InSampleRatio: 0.7,
			FrontMonth:    true,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./daytrader.db",
		},
	}
}
