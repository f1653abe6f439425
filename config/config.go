// Package config loads the engine configuration: trading parameters from a
// YAML or JSON file and secrets (API keys, bot tokens) from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Risk       RiskConfig       `json:"risk" yaml:"risk"`
	Trading    TradingConfig    `json:"trading" yaml:"trading"`
	Strategies []StrategyConfig `json:"strategies" yaml:"strategies"`
	Feed       FeedConfig       `json:"feed" yaml:"feed"`
	State      StateConfig      `json:"state" yaml:"state"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
}

// AccountConfig contains account initialization parameters.
type AccountConfig struct {
	Capital float64 `json:"capital" yaml:"capital"`
}

// RiskConfig contains the portfolio limits.
type RiskConfig struct {
	MaxPositionPct    float64 `json:"max_position_pct" yaml:"max_position_pct"`
	DailyLossLimitPct float64 `json:"daily_loss_limit_pct" yaml:"daily_loss_limit_pct"`
	MaxOpenPositions  int     `json:"max_open_positions" yaml:"max_open_positions"`
}

// TradingConfig contains the per-position parameters.
type TradingConfig struct {
	Leverage      float64 `json:"leverage" yaml:"leverage"`
	StopLossPct   float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct float64 `json:"take_profit_pct" yaml:"take_profit_pct"`
	FeeRate       float64 `json:"fee_rate" yaml:"fee_rate"`
}

// StrategyConfig binds one named strategy instance to a symbol.
type StrategyConfig struct {
	Name   string         `json:"name" yaml:"name"`
	Kind   string         `json:"kind" yaml:"kind"`
	Symbol string         `json:"symbol" yaml:"symbol"`
	Params map[string]int `json:"params,omitempty" yaml:"params,omitempty"`
}

// FeedConfig contains the market-data stream settings.
type FeedConfig struct {
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	Interval string `json:"interval" yaml:"interval"` // kline interval in minutes
}

// StateConfig contains snapshot persistence settings.
type StateConfig struct {
	Path string `json:"path" yaml:"path"`
}

// JournalConfig contains trade journal settings.
type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Symbols returns the unique symbols referenced by the strategies, in config
// order.
func (c *Config) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range c.Strategies {
		if !seen[s.Symbol] {
			seen[s.Symbol] = true
			out = append(out, s.Symbol)
		}
	}
	return out
}

// Validate checks the configuration for internally consistent values.
func (c *Config) Validate() error {
	if c.Account.Capital <= 0 {
		return fmt.Errorf("account.capital must be positive")
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be in (0, 1]")
	}
	if c.Risk.DailyLossLimitPct < 0 || c.Risk.DailyLossLimitPct > 1 {
		return fmt.Errorf("risk.daily_loss_limit_pct must be in [0, 1]")
	}
	if c.Risk.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk.max_open_positions must be positive")
	}
	if c.Trading.Leverage < 1 {
		return fmt.Errorf("trading.leverage must be at least 1")
	}
	if c.Trading.StopLossPct <= 0 || c.Trading.TakeProfitPct <= 0 {
		return fmt.Errorf("trading stop_loss_pct and take_profit_pct must be positive")
	}
	if c.Trading.FeeRate < 0 {
		return fmt.Errorf("trading.fee_rate must not be negative")
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}
	names := make(map[string]bool)
	for i, s := range c.Strategies {
		if s.Name == "" || s.Kind == "" || s.Symbol == "" {
			return fmt.Errorf("strategies[%d]: name, kind, and symbol are required", i)
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate strategy name %q", s.Name)
		}
		names[s.Name] = true
		if !strings.HasSuffix(s.Symbol, "USDT") {
			return fmt.Errorf("strategies[%d]: symbol %q must be a USDT perpetual", i, s.Symbol)
		}
	}
	if c.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Capital: 1000.0,
		},
		Risk: RiskConfig{
			MaxPositionPct:    0.20,
			DailyLossLimitPct: 0.10,
			MaxOpenPositions:  3,
		},
		Trading: TradingConfig{
			Leverage:      5,
			StopLossPct:   0.03,
			TakeProfitPct: 0.06,
			FeeRate:       0.0006,
		},
		Strategies: []StrategyConfig{
			{Name: "ETH_EMA", Kind: "ema-cross", Symbol: "ETHUSDT"},
			{Name: "SOL_RSI", Kind: "rsi-reversion", Symbol: "SOLUSDT"},
		},
		Feed: FeedConfig{
			Interval: "60",
		},
		State: StateConfig{
			Path: "state.json",
		},
		Journal: JournalConfig{
			DBPath: "trades.db",
		},
	}
}
