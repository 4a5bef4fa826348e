package backtest

import (
	"fmt"

	"github.com/11e3/quantlab/internal/core"
)

// SizingMode selects how entry capital is allocated.
type SizingMode string

const (
	// SizingEqual splits available cash equally across free slots.
	SizingEqual SizingMode = "equal"
	// SizingVolatility scales the equal split toward a volatility target
	// derived from the frame's ATR column.
	SizingVolatility SizingMode = "volatility"
	// SizingCustom delegates to a caller-provided Sizer.
	SizingCustom SizingMode = "custom"
)

// SizeRequest carries the context a Sizer needs to size one accepted entry.
type SizeRequest struct {
	Ticker     string
	Base       float64 // equal-split allocation: cash / available slots
	Cash       float64 // total cash currently available
	Close      float64 // the bar's close
	ATR        float64 // NaN when the frame carries no ATR column
	Multiplier float64 // per-bar size multiplier, 1 when absent
}

// Sizer computes the cash to commit for an accepted entry. The engine
// clamps the returned amount to the available cash.
type Sizer func(req SizeRequest) float64

// Config holds the parameters of a single engine run. It is a plain
// value object: the engine copies it into the Result and never mutates
// it, so concurrent runs cannot observe each other's configuration.
type Config struct {
	InitialCapital float64
	FeeRate        float64
	SlippageRate   float64
	MaxSlots       int

	Sizing        SizingMode
	VolTarget     float64 // target daily volatility for SizingVolatility
	ATRMultiplier float64
	CustomSizer   Sizer `json:"-"`

	// Optional config-level exits, evaluated on close in the exit pass.
	StopLossPct     float64
	TakeProfitPct   float64
	TrailingStopPct float64

	// EntryOrder fixes the tie-break order for same-day entry
	// candidates. Empty means ascending lexical ticker order.
	EntryOrder []string
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial capital must be positive, got %f", c.InitialCapital))
	}
	if c.FeeRate < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("fee rate cannot be negative, got %f", c.FeeRate))
	}
	if c.SlippageRate < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("slippage rate cannot be negative, got %f", c.SlippageRate))
	}
	if c.MaxSlots < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max slots must be at least 1, got %d", c.MaxSlots))
	}

	switch c.Sizing {
	case "", SizingEqual:
	case SizingVolatility:
		if c.VolTarget <= 0 || c.ATRMultiplier <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("volatility sizing needs vol target and atr multiplier, got %f / %f",
					c.VolTarget, c.ATRMultiplier))
		}
	case SizingCustom:
		if c.CustomSizer == nil {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("custom sizing selected without a sizer"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown sizing mode %q", c.Sizing))
	}

	return nil
}
