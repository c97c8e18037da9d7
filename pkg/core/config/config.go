// Package config loads runtime settings from a YAML file, a .env file and
// environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"fair_value/pkg/core/ingest"
	"fair_value/pkg/core/store"
	"fair_value/pkg/core/valuation"
)

// Environment variables that override file settings.
const (
	EnvAPIKey      = "FMP_API_KEY"
	EnvDatabaseURL = "DATABASE_URL"
	EnvRedisAddr   = "REDIS_ADDR"
	EnvHTTPPort    = "HTTP_PORT"
	EnvLogLevel    = "LOG_LEVEL"
)

// Config is the full application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Provider    ProviderConfig    `yaml:"provider"`
	Watchlist   store.Config      `yaml:"watchlist"`
	Assumptions AssumptionsConfig `yaml:"assumptions"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// AllowedOrigin is sent as Access-Control-Allow-Origin.
	AllowedOrigin string `yaml:"allowed_origin"`
}

type ProviderConfig struct {
	BaseURL                string        `yaml:"base_url"`
	APIKey                 string        `yaml:"api_key"`
	Timeout                time.Duration `yaml:"timeout"`
	RequestsPerSecond      float64       `yaml:"requests_per_second"`
	Burst                  int           `yaml:"burst"`
	MaxConsecutiveFailures uint32        `yaml:"max_consecutive_failures"`
	BreakerCooldown        time.Duration `yaml:"breaker_cooldown"`
}

// AssumptionsConfig holds default DCF assumptions in percent.
type AssumptionsConfig struct {
	RequiredRate       float64 `yaml:"required_rate"`
	PerpetualRate      float64 `yaml:"perpetual_rate"`
	CashFlowGrowthRate float64 `yaml:"cash_flow_growth_rate"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	pc := ingest.DefaultClientConfig()
	return &Config{
		Server: ServerConfig{
			Port:          8080,
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  60 * time.Second,
			AllowedOrigin: "*",
		},
		Provider: ProviderConfig{
			BaseURL:                pc.BaseURL,
			Timeout:                pc.Timeout,
			RequestsPerSecond:      pc.RequestsPerSecond,
			Burst:                  pc.Burst,
			MaxConsecutiveFailures: pc.MaxConsecutiveFailures,
			BreakerCooldown:        pc.BreakerCooldown,
		},
		Watchlist: store.Config{
			Backend:  store.BackendMemory,
			RedisKey: store.DefaultRedisKey,
		},
		Assumptions: AssumptionsConfig{
			RequiredRate:       7,
			PerpetualRate:      2,
			CashFlowGrowthRate: 3,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads path (optional), then .env (optional), then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from getenv. Empty variables are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvAPIKey); v != "" {
		c.Provider.APIKey = v
	}
	if v := getenv(EnvDatabaseURL); v != "" {
		c.Watchlist.DatabaseURL = v
		if c.Watchlist.Backend == "" || c.Watchlist.Backend == store.BackendMemory {
			c.Watchlist.Backend = store.BackendPostgres
		}
	}
	if v := getenv(EnvRedisAddr); v != "" {
		c.Watchlist.RedisAddr = v
	}
	if v := getenv(EnvHTTPPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvHTTPPort, v, err)
		}
		c.Server.Port = port
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks settings that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Provider.RequestsPerSecond <= 0 {
		return fmt.Errorf("provider requests_per_second must be positive")
	}
	switch strings.ToLower(c.Watchlist.Backend) {
	case "", store.BackendMemory:
	case store.BackendPostgres:
		if c.Watchlist.DatabaseURL == "" {
			return fmt.Errorf("watchlist backend postgres requires %s", EnvDatabaseURL)
		}
	case store.BackendRedis:
		if c.Watchlist.RedisAddr == "" {
			return fmt.Errorf("watchlist backend redis requires %s", EnvRedisAddr)
		}
	default:
		return fmt.Errorf("unknown watchlist backend %q", c.Watchlist.Backend)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}
	if err := c.DefaultAssumptions().Validate(); err != nil {
		return fmt.Errorf("invalid default assumptions: %w", err)
	}
	return nil
}

// DefaultAssumptions converts the configured percentages to decimal assumptions.
func (c *Config) DefaultAssumptions() valuation.Assumptions {
	a := c.Assumptions
	return valuation.FromPercent(a.RequiredRate, a.PerpetualRate, a.CashFlowGrowthRate)
}

// ClientConfig returns the provider client settings.
func (c *Config) ClientConfig() ingest.ClientConfig {
	p := c.Provider
	return ingest.ClientConfig{
		BaseURL:                p.BaseURL,
		APIKey:                 p.APIKey,
		Timeout:                p.Timeout,
		RequestsPerSecond:      p.RequestsPerSecond,
		Burst:                  p.Burst,
		MaxConsecutiveFailures: p.MaxConsecutiveFailures,
		BreakerCooldown:        p.BreakerCooldown,
	}
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
