// Package config loads CLI configuration from file, environment, and
// defaults, in that order of increasing precedence for the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ErrConfigNotFound marks a missing config file, which callers treat as
// "run on defaults" rather than a failure.
var ErrConfigNotFound = errors.New("config file not found")

// APIConfig points at the backend the console talks to.
type APIConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// ServeConfig configures the local stub server.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
	// DB is the SQLite path; empty selects the in-memory store.
	DB   string `mapstructure:"db"`
	Seed bool   `mapstructure:"seed"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the full CLI configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Serve   ServeConfig   `mapstructure:"serve"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DefaultConfig returns the built-in defaults: a local stub on :8080
// and the client pointed at it.
func DefaultConfig() *Config {
	return &Config{
		API:     APIConfig{URL: "http://localhost:8080"},
		Serve:   ServeConfig{Addr: ":8080", Seed: true},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration from the given file (optional) and the
// METAFORM_* environment. A missing default file yields defaults, not
// an error; a named file that does not exist is ErrConfigNotFound.
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
	} else {
		v.SetConfigName("metaform")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("METAFORM")
	v.AutomaticEnv()
	_ = v.BindEnv("api.url", "METAFORM_API_URL")
	_ = v.BindEnv("api.token", "METAFORM_API_TOKEN")
	_ = v.BindEnv("serve.addr", "METAFORM_ADDR")
	_ = v.BindEnv("serve.db", "METAFORM_DB")
	_ = v.BindEnv("logging.level", "METAFORM_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// NewLogger builds a zap logger at the configured level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	log, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return log, nil
}
