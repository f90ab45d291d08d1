// Package config provides configuration management for where2work.
//
// Configuration is loaded from three sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (WHERE2WORK_ prefix)
//  3. Config file (.where2work.yaml)
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/where2work/internal/band"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Supported selection stores.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Defaults that are not zero values.
const (
	DefaultData    = "company_data.csv"
	DefaultSession = "default"
	DefaultSeed    = 42
)

// Config represents the global configuration for where2work.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// NoColor disables colored output.
	NoColor bool `mapstructure:"no-color" json:"noColor"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// Data is the dataset location: a local CSV path or s3://bucket/key.
	Data string `mapstructure:"data" json:"data"`

	// Bands is the canonical band order, smallest first.
	Bands []string `mapstructure:"bands" json:"bands"`

	// Seed seeds every layout pass.
	Seed uint64 `mapstructure:"seed" json:"seed"`

	// Store selects the shortlist store: memory, sqlite, postgres.
	Store string `mapstructure:"store" json:"store"`

	// StoreDSN is the sqlite file path or postgres connection string.
	StoreDSN string `mapstructure:"store-dsn" json:"-"`

	// Session keys the shortlist for CLI commands.
	Session string `mapstructure:"session" json:"session"`

	// S3Region, S3Endpoint and S3PathStyle configure s3:// datasets.
	S3Region    string `mapstructure:"s3-region" json:"s3Region,omitempty"`
	S3Endpoint  string `mapstructure:"s3-endpoint" json:"s3Endpoint,omitempty"`
	S3PathStyle bool   `mapstructure:"s3-path-style" json:"s3PathStyle,omitempty"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load(); never read from the config itself.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns a Config with the default values.
func Default() *Config {
	return &Config{
		LogLevel:  LogLevelInfo,
		LogFormat: LogFormatText,
		Data:      DefaultData,
		Bands:     band.DefaultOrder(),
		Seed:      DefaultSeed,
		Store:     StoreMemory,
		Session:   DefaultSession,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	switch c.Store {
	case StoreMemory, StoreSQLite, StorePostgres:
		// valid
	default:
		return fmt.Errorf("invalid store %q: must be one of memory, sqlite, postgres", c.Store)
	}

	if strings.TrimSpace(c.Data) == "" {
		return fmt.Errorf("data must not be empty")
	}

	if c.Session == "" {
		return fmt.Errorf("session must not be empty")
	}

	return validateBands(c.Bands)
}

// validateBands requires distinct, non-blank bands with distinct leading
// tokens, since classification matches on the token alone.
func validateBands(bands []string) error {
	if len(bands) == 0 {
		return fmt.Errorf("bands must not be empty")
	}

	order := band.Order(bands)
	seen := make(map[string]int, len(bands))

	for i := range order {
		tok := order.Token(i)
		if tok == "" {
			return fmt.Errorf("bands[%d] is blank", i)
		}

		if j, ok := seen[tok]; ok {
			return fmt.Errorf("bands[%d] %q and bands[%d] %q share the leading token %q", j, bands[j], i, bands[i], tok)
		}

		seen[tok] = i
	}

	return nil
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// BandOrder returns the configured band order.
func (c *Config) BandOrder() band.Order {
	return band.Order(c.Bands).Clone()
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Store the resolved config file path so downstream code can locate it.
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("no-color", false)
	v.SetDefault("quiet", false)
	v.SetDefault("data", d.Data)
	v.SetDefault("bands", []string(d.Bands))
	v.SetDefault("seed", d.Seed)
	v.SetDefault("store", d.Store)
	v.SetDefault("store-dsn", "")
	v.SetDefault("session", d.Session)
	v.SetDefault("s3-region", "")
	v.SetDefault("s3-endpoint", "")
	v.SetDefault("s3-path-style", false)
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("WHERE2WORK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".where2work")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "where2work"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}

		// Found a file but it was malformed.
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	// Bind the current command's own flags.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	// Walk up to root and bind all persistent flags at each level.
	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
