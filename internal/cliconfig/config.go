// Package cliconfig loads gridlex's configuration from built-in defaults,
// gridlex.yml (or gridlex.yaml), and environment variables, in that order
// of increasing precedence.
package cliconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is gridlex's full runtime configuration.
type Config struct {
	Index  IndexConfig  `mapstructure:"index"`
	Store  StoreConfig  `mapstructure:"store"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// IndexConfig controls Index construction resource limits.
type IndexConfig struct {
	Parallel         bool `mapstructure:"parallel"`
	Workers          int  `mapstructure:"workers"`
	MaxVisitedStates int  `mapstructure:"max_visited_states"`
	TimeoutSeconds   int  `mapstructure:"timeout_seconds"`
}

// StoreConfig selects and configures the optional Index persistence backend.
type StoreConfig struct {
	// Driver is one of "sqlite", "postgres", "none". "none" disables
	// persistence and every Index is rebuilt on demand.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ServerConfig controls the optional HTTP/WebSocket Guide-session service.
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	JWTSigningKey string `mapstructure:"jwt_signing_key"`
	RedisAddr     string `mapstructure:"redis_addr"`
}

// LogConfig controls the shared obslog logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads gridlex.yml/gridlex.yaml from the current directory (if
// present), layers GRIDLEX_-prefixed environment variables on top, and
// returns the merged, validated Config. If the GRIDLEX_CONFIG environment
// variable is set, it names an explicit config file path to read instead
// of the default gridlex.yml/gridlex.yaml lookup.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("index.parallel", false)
	v.SetDefault("index.workers", 4)
	v.SetDefault("index.max_visited_states", 0)
	v.SetDefault("index.timeout_seconds", 30)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.dsn", "")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8761)
	v.SetDefault("server.jwt_signing_key", "dev-signing-key-change-me")
	v.SetDefault("server.redis_addr", "localhost:6379")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	if path := os.Getenv("GRIDLEX_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gridlex")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GRIDLEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("cliconfig: failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cliconfig: failed to unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Store.Driver {
	case "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("cliconfig: store.driver must be one of none|sqlite|postgres, got %q", cfg.Store.Driver)
	}
	if cfg.Store.Driver != "none" && cfg.Store.DSN == "" {
		return fmt.Errorf("cliconfig: store.dsn is required when store.driver is %q", cfg.Store.Driver)
	}
	if cfg.Index.Workers < 0 {
		return fmt.Errorf("cliconfig: index.workers must be >= 0, got %d", cfg.Index.Workers)
	}
	return nil
}

// DatabaseURL returns the store DSN from the environment if set, falling
// back to the config file's store.dsn.
func DatabaseURL() string {
	if dsn := os.Getenv("GRIDLEX_STORE_DSN"); dsn != "" {
		return dsn
	}
	cfg, err := Load()
	if err != nil {
		return ""
	}
	return cfg.Store.DSN
}
