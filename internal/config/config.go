// Package config loads service settings from config.yaml, .env and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config stores all configuration for the listener and auto-sell services.
// Values are read by viper from a config file or environment variables, e.g.
// RPC_HTTP_ENDPOINT overrides rpc.http_endpoint.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	RPC      RPCConfig      `mapstructure:"rpc"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Listener ListenerConfig `mapstructure:"listener"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	AutoSell AutoSellConfig `mapstructure:"autosell"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// RPCConfig defines the Solana node endpoints.
type RPCConfig struct {
	HTTPEndpoint string        `mapstructure:"http_endpoint"`
	WSEndpoint   string        `mapstructure:"ws_endpoint"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	Commitment   string        `mapstructure:"commitment"` // confirmed or finalized
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend       string `mapstructure:"backend"` // postgres or memory
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
}

// ListenerConfig defines the block loop settings.
type ListenerConfig struct {
	StartSlot       int64         `mapstructure:"start_slot"`
	Resume          bool          `mapstructure:"resume"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	BlockRetryDelay time.Duration `mapstructure:"block_retry_delay"`
	DumpDir         string        `mapstructure:"dump_dir"`
	FollowTip       bool          `mapstructure:"follow_tip"`
}

// OracleConfig defines the SOL/USD price source.
type OracleConfig struct {
	SOLPriceURL     string        `mapstructure:"sol_price_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// AutoSellConfig defines the Jupiter endpoints and wallet keys.
type AutoSellConfig struct {
	PriceURL     string        `mapstructure:"price_url"`
	SwapURL      string        `mapstructure:"swap_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	KeysFile     string        `mapstructure:"keys_file"`
}

// MetricsConfig defines the Prometheus endpoint. Empty addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

var defaults = map[string]any{
	"log.level":                  "info",
	"log.format":                 "text",
	"rpc.http_endpoint":          "https://api.mainnet-beta.solana.com",
	"rpc.ws_endpoint":            "",
	"rpc.timeout":                30 * time.Second,
	"rpc.max_retries":            3,
	"rpc.commitment":             "confirmed",
	"storage.backend":            BackendPostgres,
	"storage.postgres_dsn":       "",
	"storage.clickhouse_dsn":     "",
	"listener.start_slot":        0,
	"listener.resume":            false,
	"listener.poll_interval":     400 * time.Millisecond,
	"listener.block_retry_delay": 3 * time.Second,
	"listener.dump_dir":          "dumps",
	"listener.follow_tip":        false,
	"oracle.sol_price_url":       "https://api-v3.raydium.io/mint/price",
	"oracle.refresh_interval":    10 * time.Second,
	"oracle.request_timeout":     5 * time.Second,
	"autosell.price_url":         "https://price.jup.ag/v6/price",
	"autosell.swap_url":          "https://quote-api.jup.ag/v6",
	"autosell.poll_interval":     500 * time.Millisecond,
	"autosell.keys_file":         "",
	"metrics.addr":               ":9090",
}

// Load reads configuration from path/config.yaml (optional), a .env file in
// the working directory (optional) and the environment. Overrides, typically
// command-line flags, are applied before validation.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.AddConfigPath(path)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	for _, override := range overrides {
		override(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.RPC.HTTPEndpoint == "" {
		errs = append(errs, errors.New("rpc.http_endpoint is required"))
	}
	if c.RPC.MaxRetries < 0 {
		errs = append(errs, errors.New("rpc.max_retries must not be negative"))
	}
	if c.RPC.Commitment != "confirmed" && c.RPC.Commitment != "finalized" {
		errs = append(errs, fmt.Errorf("rpc.commitment %q: want confirmed or finalized", c.RPC.Commitment))
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q: want postgres or memory", c.Storage.Backend))
	}
	if c.Listener.StartSlot < 0 {
		errs = append(errs, errors.New("listener.start_slot must not be negative"))
	}
	if c.Listener.FollowTip && c.RPC.WSEndpoint == "" {
		errs = append(errs, errors.New("listener.follow_tip requires rpc.ws_endpoint"))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// UseMemory is an override switching storage to the in-memory backend.
func UseMemory(c *Config) {
	c.Storage.Backend = BackendMemory
}
