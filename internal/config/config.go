package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/lameck-sudo/aviator-game/internal/game"
	"github.com/lameck-sudo/aviator-game/internal/recorder"
	"github.com/lameck-sudo/aviator-game/internal/rng"
)

// Prefix for environment variable names, so HOUSE_EDGE becomes CRASH_HOUSE_EDGE.
const envprefix = "CRASH"

// Config holds the game and server settings. Values are layered: built-in defaults,
// then the optional YAML file, then environment variables.
type Config struct {
	// Port falls back to the unprefixed PORT variable.
	Port string `yaml:"port" envconfig:"PORT"`

	// Game
	HouseEdge      float64       `yaml:"house_edge" split_words:"true"`
	GrowthRate     float64       `yaml:"growth_rate" split_words:"true"`
	TickInterval   time.Duration `yaml:"tick_interval" split_words:"true"`
	BettingWindow  time.Duration `yaml:"betting_window" split_words:"true"`
	Intermission   time.Duration `yaml:"intermission"`
	CashoutTimeout time.Duration `yaml:"cashout_timeout" split_words:"true"`
	HistorySize    int           `yaml:"history_size" split_words:"true"`
	InitialBalance float64       `yaml:"initial_balance" split_words:"true"`
	MaxBet         float64       `yaml:"max_bet" split_words:"true"`

	// Seed is a decimal uint32. Empty draws one from crypto/rand at start-up.
	Seed string `yaml:"seed"`

	// Archive
	SQLitePath    string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	RetentionCron string `yaml:"retention_cron" split_words:"true"`
	RetentionDays int    `yaml:"retention_days" split_words:"true"`
}

func Default() Config {
	return Config{
		Port:           "8080",
		HouseEdge:      game.HOUSE_EDGE,
		GrowthRate:     game.GROWTH_RATE,
		TickInterval:   game.TICK_INTERVAL,
		BettingWindow:  game.BETTING_TIME,
		Intermission:   game.INTERMISSION,
		CashoutTimeout: game.CASHOUT_TIMEOUT,
		HistorySize:    game.DEFAULT_HISTORY_SIZE,
		InitialBalance: game.INITIAL_BALANCE,
		MaxBet:         game.MAX_BET_AMOUNT,
		RetentionCron:  recorder.DEFAULT_RETENTION_CRON,
		RetentionDays:  30,
	}
}

// Load builds the configuration. A missing file at path is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := envconfig.Process(envprefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.roundConfig().Validate(); err != nil {
		return err
	}
	for name, d := range map[string]time.Duration{
		"tick_interval":   c.TickInterval,
		"betting_window":  c.BettingWindow,
		"intermission":    c.Intermission,
		"cashout_timeout": c.CashoutTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", game.ErrInvalidConfig, name)
		}
	}
	if c.InitialBalance < 0 {
		return fmt.Errorf("%w: negative initial balance", game.ErrInvalidConfig)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("%w: negative retention", game.ErrInvalidConfig)
	}
	if c.Seed != "" {
		if _, err := rng.ParseSeed(c.Seed); err != nil {
			return err
		}
	}
	return nil
}

// ResolveSeed returns the configured seed, or a random one when none is set.
func (c Config) ResolveSeed() (uint32, error) {
	if c.Seed == "" {
		return rng.RandomSeed()
	}
	return rng.ParseSeed(c.Seed)
}

// Retention is zero when pruning is disabled.
func (c Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c Config) ManagerConfig(seedCommitment string) game.ManagerConfig {
	return game.ManagerConfig{
		Round:          c.roundConfig(),
		TickInterval:   c.TickInterval,
		BettingWindow:  c.BettingWindow,
		Intermission:   c.Intermission,
		CashoutTimeout: c.CashoutTimeout,
		InitialBalance: c.InitialBalance,
		SeedCommitment: seedCommitment,
	}
}

func (c Config) roundConfig() game.RoundConfig {
	return game.RoundConfig{
		HouseEdge:   c.HouseEdge,
		GrowthRate:  c.GrowthRate,
		HistorySize: c.HistorySize,
		MaxBet:      c.MaxBet,
	}
}
