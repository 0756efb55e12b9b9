// Package config loads and validates run configuration.
// Precedence: defaults < YAML file < FLOOR_* environment < CLI flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix is the environment variable prefix (FLOOR_ESTIMATION_LOOKBACK, ...).
const EnvPrefix = "FLOOR"

// Storage backends.
const (
	BackendNone       = "none"
	BackendCSV        = "csv"
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
)

// Config is the complete run configuration.
type Config struct {
	Estimation Estimation    `yaml:"estimation" envconfig:"ESTIMATION"`
	Storage    StorageConfig `yaml:"storage" envconfig:"STORAGE"`
	Logging    LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Report     ReportConfig  `yaml:"report" envconfig:"REPORT"`
	Metrics    MetricsConfig `yaml:"metrics" envconfig:"METRICS"`
}

// Estimation holds the floor price model parameters.
type Estimation struct {
	Lookback      int     `yaml:"lookback" envconfig:"LOOKBACK" validate:"gt=0"`
	Backtest      int     `yaml:"backtest" envconfig:"BACKTEST" validate:"gt=0"`
	PctTarget     float64 `yaml:"pct_target" envconfig:"PCT_TARGET" validate:"gt=0,lt=1"`
	PctTargetMin  float64 `yaml:"pct_target_min" envconfig:"PCT_TARGET_MIN" validate:"gte=0,lte=1"`
	PctTargetMax  float64 `yaml:"pct_target_max" envconfig:"PCT_TARGET_MAX" validate:"gte=0,lte=1"`
	Speed         float64 `yaml:"speed" envconfig:"SPEED" validate:"gt=0,lte=1"`
	// TwapBufferPct is the minimum price_eth / twap_bid ratio in (0,1]. 0 turns the
	// twap check off entirely, so trades without a twap_bid are kept as well.
	TwapBufferPct float64 `yaml:"twap_buffer_pct" envconfig:"TWAP_BUFFER_PCT" validate:"gte=0,lte=1"`
	Workers       int     `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`
}

// StorageConfig selects the trade source and the estimate sink.
type StorageConfig struct {
	Source        string `yaml:"source" envconfig:"SOURCE" validate:"oneof=csv memory postgres clickhouse"`
	Sink          string `yaml:"sink" envconfig:"SINK" validate:"oneof=none memory postgres clickhouse"`
	CSVPath       string `yaml:"csv_path" envconfig:"CSV_PATH" validate:"required_if=Source csv"`
	PostgresDSN   string `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"`
	ClickhouseDSN string `yaml:"clickhouse_dsn" envconfig:"CLICKHOUSE_DSN"`
	Migrate       bool   `yaml:"migrate" envconfig:"MIGRATE"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=console json"`
}

// ReportConfig controls file reports. Empty OutputDir disables them.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
}

// MetricsConfig controls the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" envconfig:"ADDR"`
}

// Default returns the production defaults.
func Default() Config {
	return Config{
		Estimation: DefaultEstimation(),
		Storage: StorageConfig{
			Source:  BackendCSV,
			Sink:    BackendNone,
			CSVPath: "nft_trades.csv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultEstimation returns the default model parameters.
func DefaultEstimation() Estimation {
	return Estimation{
		Lookback:      140,
		Backtest:      800,
		PctTarget:     0.05,
		PctTargetMin:  0.02,
		PctTargetMax:  0.10,
		Speed:         0.5,
		TwapBufferPct: 0.95,
	}
}

// Load builds a Config from defaults, the optional YAML file at path, and the environment.
// The result is not validated; call Validate after applying CLI overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// envconfig only overwrites fields whose variables are set.
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	return &cfg, nil
}

// MaxTradesPerCollection is the per-collection working set cap: 2*(BACKTEST+LOOKBACK).
func (e Estimation) MaxTradesPerCollection() int {
	return 2 * (e.Backtest + e.Lookback)
}

// WorkerCount resolves Workers, defaulting to the number of CPUs.
func (e Estimation) WorkerCount() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.NumCPU()
}

var validate = validator.New()

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Estimation.Validate(); err != nil {
		return err
	}

	switch c.Storage.Source {
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for source %q", ErrInvalidConfig, c.Storage.Source)
		}
	case BackendClickhouse:
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("%w: clickhouse_dsn is required for source %q", ErrInvalidConfig, c.Storage.Source)
		}
	}
	switch c.Storage.Sink {
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for sink %q", ErrInvalidConfig, c.Storage.Sink)
		}
	case BackendClickhouse:
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("%w: clickhouse_dsn is required for sink %q", ErrInvalidConfig, c.Storage.Sink)
		}
	}
	return nil
}

// Validate checks the model parameters, including 0 <= MIN <= PCT_TARGET <= MAX <= 1.
func (e Estimation) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if e.PctTargetMin > e.PctTargetMax {
		return fmt.Errorf("%w: pct_target_min %.4f > pct_target_max %.4f", ErrInvalidConfig, e.PctTargetMin, e.PctTargetMax)
	}
	if e.PctTarget < e.PctTargetMin || e.PctTarget > e.PctTargetMax {
		return fmt.Errorf("%w: pct_target %.4f outside [%.4f, %.4f]", ErrInvalidConfig, e.PctTarget, e.PctTargetMin, e.PctTargetMax)
	}
	return nil
}
