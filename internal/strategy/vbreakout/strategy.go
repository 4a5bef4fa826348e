// Package vbreakout implements a volatility breakout strategy: enter
// when the day's high clears the open plus a fraction of the previous
// bar's range, exit when the close falls under its moving average. The
// SMA column is exported on the frame so entries that close back under
// the average settle as same-bar round trips.
package vbreakout

import (
	"fmt"
	"math"

	"github.com/11e3/quantlab/internal/core"
	"github.com/11e3/quantlab/internal/frame"
	"github.com/11e3/quantlab/internal/indicator"
	"github.com/11e3/quantlab/internal/strategy"
)

// VBreakout holds the strategy parameters.
type VBreakout struct {
	k         float64 // fraction of the previous bar's range
	smaPeriod int
}

// New creates a volatility breakout strategy.
func New(k float64, smaPeriod int) *VBreakout {
	return &VBreakout{k: k, smaPeriod: smaPeriod}
}

func (v *VBreakout) Name() string {
	return "vbreakout"
}

func (v *VBreakout) Description() string {
	return fmt.Sprintf("Volatility Breakout (k=%.2f, SMA%d)", v.k, v.smaPeriod)
}

func (v *VBreakout) MinBars() int {
	return v.smaPeriod + 1
}

func (v *VBreakout) Init(cfg strategy.Config) error {
	v.k = cfg.Float("k", v.k)
	v.smaPeriod = cfg.Int("sma_period", v.smaPeriod)
	if v.k <= 0 || v.k > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("vbreakout: k must be in (0, 1], got %f", v.k))
	}
	if v.smaPeriod < 2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("vbreakout: sma period must be at least 2, got %d", v.smaPeriod))
	}
	return nil
}

// Build annotates each ticker independently.
func (v *VBreakout) Build(bars map[string][]core.Bar) (map[string]*frame.Frame, error) {
	if err := strategy.CheckHistory(v, bars); err != nil {
		return nil, err
	}

	frames := make(map[string]*frame.Frame, len(bars))
	for ticker, b := range bars {
		frames[ticker] = v.annotate(ticker, b)
	}
	return frames, nil
}

func (v *VBreakout) annotate(ticker string, bars []core.Bar) *frame.Frame {
	f := frame.FromBars(ticker, bars)
	f.SMA = indicator.SMA(f.Close, v.smaPeriod)

	for i := 1; i < f.Len(); i++ {
		prevRange := f.High[i-1] - f.Low[i-1]
		if prevRange <= 0 {
			continue
		}
		target := f.Open[i] + v.k*prevRange
		f.Target[i] = target
		f.Entry[i] = f.High[i] >= target

		sma := f.SMA[i]
		f.Exit[i] = !math.IsNaN(sma) && f.Close[i] < sma
	}
	return f
}
