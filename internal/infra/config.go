package infra

import (
	"errors"
	"fmt"
	"os"

	"bookwatch/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// MarketConfig describes one market to watch.
type MarketConfig struct {
	Symbol        string          `yaml:"symbol"`
	Bids          string          `yaml:"bids"`
	Asks          string          `yaml:"asks"`
	BaseDecimals  int32           `yaml:"base_decimals"`
	QuoteDecimals int32           `yaml:"quote_decimals"`
	BaseLotSize   decimal.Decimal `yaml:"base_lot_size"`
	QuoteLotSize  decimal.Decimal `yaml:"quote_lot_size"`
}

// Config holds all application settings. Loaded from YAML, then sensitive
// or deployment-specific values are overridden from the environment.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Ledger struct {
		RPCURL     string `yaml:"rpc_url"`
		WSURL      string `yaml:"ws_url"`
		Commitment string `yaml:"commitment"` // "processed", "confirmed" or "finalized"
	} `yaml:"ledger"`

	Markets []MarketConfig `yaml:"markets"`

	Health struct {
		ThresholdSec      int `yaml:"threshold_sec"`
		ReportIntervalSec int `yaml:"report_interval_sec"`
	} `yaml:"health"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrConfigNotFound)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Ledger.RPCURL == "" || (!hasPrefix(c.Ledger.RPCURL, "http://") && !hasPrefix(c.Ledger.RPCURL, "https://")) {
		return fmt.Errorf("invalid ledger RPC URL: %s", c.Ledger.RPCURL)
	}
	if c.Ledger.WSURL == "" || (!hasPrefix(c.Ledger.WSURL, "ws://") && !hasPrefix(c.Ledger.WSURL, "wss://")) {
		return fmt.Errorf("invalid ledger WS URL: %s", c.Ledger.WSURL)
	}

	switch c.Ledger.Commitment {
	case "", "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("invalid commitment: %s", c.Ledger.Commitment)
	}

	if len(c.Markets) == 0 {
		return fmt.Errorf("at least one market is required")
	}
	seen := make(map[string]bool, len(c.Markets))
	for _, m := range c.Markets {
		if m.Symbol == "" {
			return fmt.Errorf("market symbol is required")
		}
		if seen[m.Symbol] {
			return fmt.Errorf("duplicate market symbol: %s", m.Symbol)
		}
		seen[m.Symbol] = true
		if m.Bids == "" || m.Asks == "" {
			return fmt.Errorf("market %s: bids and asks addresses are required", m.Symbol)
		}
		if !m.BaseLotSize.IsPositive() || !m.QuoteLotSize.IsPositive() {
			return fmt.Errorf("market %s: lot sizes must be positive", m.Symbol)
		}
	}

	if c.Health.ThresholdSec <= 0 {
		return fmt.Errorf("health threshold must be positive")
	}

	return nil
}

// Commitment returns the configured commitment level, defaulting to confirmed.
func (c *Config) Commitment() string {
	if c.Ledger.Commitment == "" {
		return "confirmed"
	}
	return c.Ledger.Commitment
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv replaces settings from environment variables when present.
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("BOOKWATCH_RPC_URL"); url != "" {
		cfg.Ledger.RPCURL = url
	}
	if url := os.Getenv("BOOKWATCH_WS_URL"); url != "" {
		cfg.Ledger.WSURL = url
	}
	if level := os.Getenv("BOOKWATCH_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
