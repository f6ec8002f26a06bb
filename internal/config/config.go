// Package config defines the querystorm configuration and loads it from
// defaults, a TOML or YAML file, the environment and command-line overrides,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/querystorm/internal/logging"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// AI providers.
const (
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// Config is the complete configuration.
type Config struct {
	Console ConsoleConfig `yaml:"console"`
	Store   StoreConfig   `yaml:"store"`
	AI      AIConfig      `yaml:"ai"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// ConsoleConfig configures version tracking.
type ConsoleConfig struct {
	Debounce    time.Duration `yaml:"debounce"`
	MaxVersions int           `yaml:"max_versions"`
	SeedInitial bool          `yaml:"seed_initial"`
}

// StoreConfig configures where console content is persisted.
type StoreConfig struct {
	Backend       string `yaml:"backend"`
	SQLitePath    string `yaml:"sqlite_path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
}

// AIConfig configures modification producers.
type AIConfig struct {
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	ScriptsDir string        `yaml:"scripts_dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Console: ConsoleConfig{
			Debounce:    500 * time.Millisecond,
			MaxVersions: 500,
			SeedInitial: true,
		},
		Store: StoreConfig{
			Backend:    BackendSQLite,
			SQLitePath: "querystorm.db",
			RedisAddr:  "localhost:6379",
			KeyPrefix:  "querystorm:",
		},
		AI: AIConfig{
			Provider: ProviderNone,
			Model:    "gpt-4o-mini",
			Timeout:  30 * time.Second,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for values no component can use.
func (c *Config) Validate() error {
	var errs []error

	if c.Console.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("console.debounce must be positive, got %s", c.Console.Debounce))
	}
	if c.Console.MaxVersions <= 0 {
		errs = append(errs, fmt.Errorf("console.max_versions must be positive, got %d", c.Console.MaxVersions))
	}

	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of sqlite, redis, memory", c.Store.Backend))
	}

	switch c.AI.Provider {
	case ProviderOpenAI, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("ai.provider %q is not one of openai, none", c.AI.Provider))
	}

	if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() logging.Level {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return level
}
