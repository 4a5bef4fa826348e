// Package trend implements a Donchian channel breakout with an ATR
// trailing stop: enter when the high clears the prior N-day high, trail
// the stop a multiple of ATR under the highest close since entry.
package trend

import (
	"fmt"
	"math"

	"github.com/11e3/quantlab/internal/core"
	"github.com/11e3/quantlab/internal/frame"
	"github.com/11e3/quantlab/internal/indicator"
	"github.com/11e3/quantlab/internal/strategy"
)

// Trend holds the strategy parameters.
type Trend struct {
	lookback  int     // Donchian channel length
	atrPeriod int
	atrMult   float64 // trailing stop distance in ATRs
}

// New creates a trend-following breakout strategy.
func New(lookback, atrPeriod int, atrMult float64) *Trend {
	return &Trend{lookback: lookback, atrPeriod: atrPeriod, atrMult: atrMult}
}

func (t *Trend) Name() string {
	return "trend"
}

func (t *Trend) Description() string {
	return fmt.Sprintf("Donchian Breakout (%d-day, %.1fx ATR%d stop)", t.lookback, t.atrMult, t.atrPeriod)
}

func (t *Trend) MinBars() int {
	if t.lookback > t.atrPeriod {
		return t.lookback + 1
	}
	return t.atrPeriod + 1
}

func (t *Trend) Init(cfg strategy.Config) error {
	t.lookback = cfg.Int("lookback", t.lookback)
	t.atrPeriod = cfg.Int("atr_period", t.atrPeriod)
	t.atrMult = cfg.Float("atr_multiplier", t.atrMult)
	if t.lookback < 2 || t.atrPeriod < 2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("trend: lookback and atr period must be at least 2, got %d / %d",
				t.lookback, t.atrPeriod))
	}
	if t.atrMult <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("trend: atr multiplier must be positive, got %f", t.atrMult))
	}
	return nil
}

// Build annotates each ticker independently.
func (t *Trend) Build(bars map[string][]core.Bar) (map[string]*frame.Frame, error) {
	if err := strategy.CheckHistory(t, bars); err != nil {
		return nil, err
	}

	frames := make(map[string]*frame.Frame, len(bars))
	for ticker, b := range bars {
		frames[ticker] = t.annotate(ticker, b)
	}
	return frames, nil
}

func (t *Trend) annotate(ticker string, bars []core.Bar) *frame.Frame {
	f := frame.FromBars(ticker, bars)
	f.ATR = indicator.ATR(f.High, f.Low, f.Close, t.atrPeriod)

	channel := indicator.RollingMax(f.High, t.lookback)
	stops := make([]float64, f.Len())
	for i := range stops {
		atr := f.ATR[i]
		if math.IsNaN(atr) {
			stops[i] = math.NaN()
			continue
		}
		stops[i] = t.atrMult * atr
	}
	f.TrailingStopDistance = stops

	// The breakout reference is the prior bar's channel top, so the
	// entry bar's own high never feeds its own trigger.
	for i := 1; i < f.Len(); i++ {
		top := channel[i-1]
		if math.IsNaN(top) {
			continue
		}
		f.Target[i] = top
		f.Entry[i] = f.High[i] >= top
	}
	return f
}
