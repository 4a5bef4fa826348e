package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/11e3/quantlab/internal/backtest"
	"github.com/11e3/quantlab/internal/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: /tmp/quantlab
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/quantlab", cfg.Storage.DataDir)
	// Untouched sections keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Backtest.MaxSlots)
	assert.Equal(t, "local", cfg.Storage.Archive.Type)
	assert.Equal(t, 1000, cfg.Analysis.Iterations)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
logging:
  development: true
  level: debug
storage:
  data_dir: /data
  results_dsn: /data/runs.db
  archive:
    type: s3
    s3:
      bucket: studies
      region: us-east-1
backtest:
  initial_capital: 1000000
  fee_rate: 0.001
  max_slots: 3
  sizing: volatility
  vol_target: 0.01
  atr_multiplier: 2
strategies:
  vbreakout:
    enabled: true
    params:
      k: 0.5
      sma_period: 20
analysis:
  workers: 4
  metric: sharpe
  iterations: 500
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "studies", cfg.Storage.Archive.S3.Bucket)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, "sharpe", cfg.Analysis.Metric)

	strat, ok := cfg.Strategies["vbreakout"]
	require.True(t, ok)
	assert.True(t, strat.Enabled)
	assert.EqualValues(t, 0.5, strat.Params["k"])

	eng := cfg.EngineConfig()
	assert.Equal(t, backtest.SizingVolatility, eng.Sizing)
	assert.Equal(t, 3, eng.MaxSlots)
	assert.NoError(t, eng.Validate())
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("QL_TEST_SECRET", "sekrit")
	path := writeConfig(t, `
storage:
  data_dir: /data
  archive:
    type: s3
    s3:
      bucket: b
      secret_key: ${QL_TEST_SECRET}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sekrit", cfg.Storage.Archive.S3.SecretKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())

	bad := Defaults()
	bad.Storage.DataDir = ""
	err := bad.Validate()
	assert.True(t, errors.Is(err, core.ErrConfigMissing), "err = %v", err)

	bad = Defaults()
	bad.Storage.Archive.Type = "tape"
	err = bad.Validate()
	assert.True(t, errors.Is(err, core.ErrConfigInvalid), "err = %v", err)

	bad = Defaults()
	bad.Storage.Archive.Type = "s3"
	err = bad.Validate()
	assert.True(t, errors.Is(err, core.ErrConfigMissing), "err = %v", err)

	bad = Defaults()
	bad.Backtest.MaxSlots = 0
	assert.Error(t, bad.Validate())
}
