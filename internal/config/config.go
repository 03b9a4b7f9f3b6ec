// Package config provides configuration management for the paper trader.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	apperrors "papertrader/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
	Store   StoreConfig   `mapstructure:"store"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// EngineConfig holds trading engine configuration.
type EngineConfig struct {
	FeeRate        float64 `mapstructure:"fee_rate"`
	DefaultBalance float64 `mapstructure:"default_balance"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// StoreConfig holds order journal configuration.
type StoreConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	BufferSize int    `mapstructure:"buffer_size"`
}

// AuditConfig holds audit trail configuration.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	LogDir  string `mapstructure:"log_dir"`
}

// FeedConfig holds price feed configuration.
type FeedConfig struct {
	BufferSize  int    `mapstructure:"buffer_size"`
	NATSURL     string `mapstructure:"nats_url"`
	NATSSubject string `mapstructure:"nats_subject"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/papertrader"
	}
	return filepath.Join(home, ".config", "papertrader")
}

// ConfigPath returns the path of config.toml inside configDir.
func ConfigPath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by a template and defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Dir = configDir

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default(configDir string) *Config {
	v := viper.New()
	setDefaults(v, configDir)
	cfg := &Config{Dir: configDir}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("engine.fee_rate", 0.001)
	v.SetDefault("engine.default_balance", 100000.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "papertrader.log"))
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 14)

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", filepath.Join(configDir, "papertrader.db"))
	v.SetDefault("store.buffer_size", 1024)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.log_dir", filepath.Join(configDir, "audit"))

	v.SetDefault("feed.buffer_size", 1000)
	v.SetDefault("feed.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("feed.nats_subject", "prices.>")

	v.SetDefault("metrics.enabled", false)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PAPERTRADER_FEE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return apperrors.Wrapf(apperrors.ErrConfigInvalid, "PAPERTRADER_FEE_RATE %q", v)
		}
		cfg.Engine.FeeRate = rate
	}
	if v := os.Getenv("PAPERTRADER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PAPERTRADER_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PAPERTRADER_NATS_URL"); v != "" {
		cfg.Feed.NATSURL = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.FeeRate < 0 || c.Engine.FeeRate >= 1 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "fee_rate must be in [0, 1), got %v", c.Engine.FeeRate)
	}
	if c.Engine.DefaultBalance <= 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "default_balance must be positive, got %v", c.Engine.DefaultBalance)
	}

	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "invalid log level: %s", c.Logging.Level)
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "store.path is required when the store is enabled")
	}
	if c.Store.BufferSize < 0 || c.Feed.BufferSize < 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "buffer sizes must not be negative")
	}

	return nil
}

// FeeRate returns the engine fee rate as a decimal.
func (c *Config) FeeRate() decimal.Decimal {
	return decimal.NewFromFloat(c.Engine.FeeRate)
}

// DefaultBalance returns the initial balance for new accounts.
func (c *Config) DefaultBalance() decimal.Decimal {
	return decimal.NewFromFloat(c.Engine.DefaultBalance)
}
