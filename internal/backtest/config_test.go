package backtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/11e3/quantlab/internal/core"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{InitialCapital: 1000, MaxSlots: 1}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"zero capital", func(c *Config) { c.InitialCapital = 0 }},
		{"negative fee", func(c *Config) { c.FeeRate = -0.01 }},
		{"negative slippage", func(c *Config) { c.SlippageRate = -0.01 }},
		{"zero slots", func(c *Config) { c.MaxSlots = 0 }},
		{"unknown sizing", func(c *Config) { c.Sizing = "martingale" }},
		{"volatility without target", func(c *Config) { c.Sizing = SizingVolatility }},
		{"custom without sizer", func(c *Config) { c.Sizing = SizingCustom }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mut(&cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.True(t,
				errors.Is(err, core.ErrConfigInvalid) || errors.Is(err, core.ErrConfigMissing),
				"want a config error, got %v", err)
		})
	}

	valid.Sizing = SizingVolatility
	valid.VolTarget = 0.01
	valid.ATRMultiplier = 2
	assert.NoError(t, valid.Validate())
}
