// Package config loads daemon configuration from defaults, an optional
// YAML file, and WALTERS_ prefixed environment variables, in that
// order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full daemon configuration.
type Config struct {
	LogLevel string `koanf:"log_level"`
	Addr     string `koanf:"addr"`

	// Bankroll is the working bankroll in dollars used to size stakes.
	Bankroll float64 `koanf:"bankroll"`

	// Postgres connection string. Empty runs on in-memory stores.
	DatabaseURL string `koanf:"database_url"`

	// Redis address for the closing line stream. Empty disables the
	// consumer.
	RedisAddr   string `koanf:"redis_addr"`
	RedisStream string `koanf:"redis_stream"`
	RedisGroup  string `koanf:"redis_group"`

	Odds    OddsConfig    `koanf:"odds"`
	Staking StakingConfig `koanf:"staking"`
	Edge    EdgeConfig    `koanf:"edge"`
}

// OddsConfig controls the market line poller.
type OddsConfig struct {
	BaseURL        string  `koanf:"base_url"`
	APIKey         string  `koanf:"api_key"`
	RequestsPerSec float64 `koanf:"requests_per_sec"`
	PollSeconds    int     `koanf:"poll_seconds"`
}

// StakingConfig overrides the staking limits.
type StakingConfig struct {
	EdgeScale        float64 `koanf:"edge_scale"`
	MaxStakeFraction float64 `koanf:"max_stake_fraction"`
	PortfolioCap     float64 `koanf:"portfolio_cap"`
	PortfolioWarn    float64 `koanf:"portfolio_warn"`
}

// EdgeConfig overrides the edge thresholds.
type EdgeConfig struct {
	MinPlayableEdge float64 `koanf:"min_playable_edge"`
	StrongBetEdge   float64 `koanf:"strong_bet_edge"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		Addr:        ":8090",
		Bankroll:    10000,
		RedisStream: "closing-lines",
		RedisGroup:  "walters",
		Odds: OddsConfig{
			RequestsPerSec: 2,
			PollSeconds:    60,
		},
		Staking: StakingConfig{
			EdgeScale:        0.5,
			MaxStakeFraction: 0.03,
			PortfolioCap:     0.25,
			PortfolioWarn:    0.15,
		},
		Edge: EdgeConfig{
			MinPlayableEdge: 5.5,
			StrongBetEdge:   7.0,
		},
	}
}

// Load layers an optional YAML file and WALTERS_ env vars over the
// defaults. Env keys map WALTERS_ODDS_BASE_URL -> odds.base_url, with
// a single underscore separating the section from the key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("WALTERS_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	sections := []string{"odds_", "staking_", "edge_"}
	envProvider := env.Provider("WALTERS_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "WALTERS_"))
		for _, sec := range sections {
			if strings.HasPrefix(s, sec) {
				return strings.TrimSuffix(sec, "_") + "." + strings.TrimPrefix(s, sec)
			}
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading env: %w", err)
	}

	cfg := *Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.Bankroll <= 0 {
		return fmt.Errorf("bankroll must be positive, got %v", c.Bankroll)
	}
	if c.Staking.MaxStakeFraction <= 0 || c.Staking.MaxStakeFraction > 1 {
		return fmt.Errorf("staking.max_stake_fraction out of range: %v", c.Staking.MaxStakeFraction)
	}
	if c.Staking.PortfolioCap < c.Staking.PortfolioWarn {
		return fmt.Errorf("staking.portfolio_cap %v below warn level %v",
			c.Staking.PortfolioCap, c.Staking.PortfolioWarn)
	}
	if c.RedisAddr != "" && (c.RedisStream == "" || c.RedisGroup == "") {
		return fmt.Errorf("redis_stream and redis_group required when redis_addr is set")
	}
	return nil
}
