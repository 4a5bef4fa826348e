package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/11e3/quantlab/internal/backtest"
	"github.com/11e3/quantlab/internal/core"
)

type Config struct {
	Logging    LoggingConfig             `mapstructure:"logging"`
	Storage    StorageConfig             `mapstructure:"storage"`
	Backtest   BacktestConfig            `mapstructure:"backtest"`
	Strategies map[string]StrategyConfig `mapstructure:"strategies"`
	Analysis   AnalysisConfig            `mapstructure:"analysis"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
}

type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type StorageConfig struct {
	DataDir    string        `mapstructure:"data_dir"`    // parquet bar files
	ResultsDSN string        `mapstructure:"results_dsn"` // sqlite run database
	Archive    ArchiveConfig `mapstructure:"archive"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "local" or "s3"
	Path string   `mapstructure:"path"` // for local
	S3   S3Config `mapstructure:"s3"`   // for s3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type BacktestConfig struct {
	InitialCapital  float64  `mapstructure:"initial_capital"`
	FeeRate         float64  `mapstructure:"fee_rate"`
	SlippageRate    float64  `mapstructure:"slippage_rate"`
	MaxSlots        int      `mapstructure:"max_slots"`
	Sizing          string   `mapstructure:"sizing"`
	VolTarget       float64  `mapstructure:"vol_target"`
	ATRMultiplier   float64  `mapstructure:"atr_multiplier"`
	StopLossPct     float64  `mapstructure:"stop_loss_pct"`
	TakeProfitPct   float64  `mapstructure:"take_profit_pct"`
	TrailingStopPct float64  `mapstructure:"trailing_stop_pct"`
	EntryOrder      []string `mapstructure:"entry_order"`
}

type StrategyConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Params  map[string]any `mapstructure:"params"`
}

type AnalysisConfig struct {
	Workers    int     `mapstructure:"workers"`
	Metric     string  `mapstructure:"metric"`
	Seed       int64   `mapstructure:"seed"`
	TrainDays  int     `mapstructure:"train_days"`
	TestDays   int     `mapstructure:"test_days"`
	StepDays   int     `mapstructure:"step_days"`
	Iterations int     `mapstructure:"iterations"`
	BlockSize  int     `mapstructure:"block_size"`
	RuinPct    float64 `mapstructure:"ruin_pct"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file with environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand ${VAR} references so secrets stay out of the file.
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			DataDir:    "data",
			ResultsDSN: "data/runs.db",
			Archive: ArchiveConfig{
				Type: "local",
				Path: "data/archive",
			},
		},
		Backtest: BacktestConfig{
			InitialCapital: 10_000_000,
			FeeRate:        0.0005,
			SlippageRate:   0.0005,
			MaxSlots:       5,
			Sizing:         "equal",
		},
		Analysis: AnalysisConfig{
			Metric:     "total_return",
			TrainDays:  504,
			TestDays:   126,
			Iterations: 1000,
			BlockSize:  20,
			RuinPct:    0.5,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("storage data_dir is required"))
	}
	switch c.Storage.Archive.Type {
	case "local":
		if c.Storage.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive path required for local archive"))
		}
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required for s3 archive"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Storage.Archive.Type))
	}

	if c.Analysis.Workers < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("analysis workers cannot be negative, got %d", c.Analysis.Workers))
	}
	if c.Analysis.Iterations < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("analysis iterations must be positive, got %d", c.Analysis.Iterations))
	}

	return c.EngineConfig().Validate()
}

// EngineConfig converts the backtest section into the engine's Config.
func (c *Config) EngineConfig() backtest.Config {
	return backtest.Config{
		InitialCapital:  c.Backtest.InitialCapital,
		FeeRate:         c.Backtest.FeeRate,
		SlippageRate:    c.Backtest.SlippageRate,
		MaxSlots:        c.Backtest.MaxSlots,
		Sizing:          backtest.SizingMode(c.Backtest.Sizing),
		VolTarget:       c.Backtest.VolTarget,
		ATRMultiplier:   c.Backtest.ATRMultiplier,
		StopLossPct:     c.Backtest.StopLossPct,
		TakeProfitPct:   c.Backtest.TakeProfitPct,
		TrailingStopPct: c.Backtest.TrailingStopPct,
		EntryOrder:      c.Backtest.EntryOrder,
	}
}
