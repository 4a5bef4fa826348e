package trend

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/11e3/quantlab/internal/core"
	"github.com/11e3/quantlab/internal/strategy"
)

func TestTrend_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*Trend)(nil)
}

func mkBars(ticker string, ohlc [][4]float64) []core.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, len(ohlc))
	for i, v := range ohlc {
		bars[i] = core.Bar{
			Ticker:   ticker,
			Interval: "1d",
			Open:     v[0],
			High:     v[1],
			Low:      v[2],
			Close:    v[3],
			Volume:   1000,
			Time:     start.AddDate(0, 0, i),
		}
	}
	return bars
}

func TestTrend_BreakoutEntry(t *testing.T) {
	s := New(3, 3, 2)

	// Highs: 102, 103, 101, then 105 clears the 3-day channel top 103.
	bars := mkBars("TEST", [][4]float64{
		{100, 102, 99, 101},
		{101, 103, 100, 102},
		{101, 101.5, 100, 101},
		{101, 105, 101, 104},
	})

	frames, err := s.Build(map[string][]core.Bar{"TEST": bars})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	f := frames["TEST"]

	if !f.Entry[3] {
		t.Error("expected breakout entry on day 3")
	}
	if math.Abs(f.Target[3]-103) > 1e-9 {
		t.Errorf("target = %v, want the prior channel top 103", f.Target[3])
	}
	if f.ATR == nil {
		t.Fatal("atr column must be set for volatility sizing")
	}
	if f.TrailingStopDistance == nil {
		t.Fatal("trailing stop column must be set")
	}
}

func TestTrend_StopDistanceScalesWithATR(t *testing.T) {
	s := New(2, 2, 3)

	bars := mkBars("TEST", [][4]float64{
		{100, 102, 98, 100},
		{100, 103, 99, 101},
		{101, 104, 100, 102},
	})

	frames, err := s.Build(map[string][]core.Bar{"TEST": bars})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	f := frames["TEST"]

	for i := range f.Dates {
		atr := f.ATR[i]
		dist := f.TrailingStopDistance[i]
		if math.IsNaN(atr) {
			if !math.IsNaN(dist) {
				t.Errorf("day %d: stop set before atr warms up", i)
			}
			continue
		}
		if math.Abs(dist-3*atr) > 1e-9 {
			t.Errorf("day %d: stop = %v, want %v", i, dist, 3*atr)
		}
	}
}

func TestTrend_InsufficientHistory(t *testing.T) {
	s := New(20, 14, 2)
	bars := mkBars("TEST", [][4]float64{{100, 101, 99, 100}})

	_, err := s.Build(map[string][]core.Bar{"TEST": bars})
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("error = %v, want ErrInsufficientData", err)
	}
}

func TestTrend_InitValidation(t *testing.T) {
	s := New(20, 14, 2)
	if err := s.Init(strategy.Config{Params: map[string]any{"lookback": 1}}); err == nil {
		t.Error("expected error for lookback < 2")
	}
	if err := s.Init(strategy.Config{Params: map[string]any{"lookback": 10, "atr_multiplier": -1}}); err == nil {
		t.Error("expected error for negative atr multiplier")
	}

	s = New(20, 14, 2)
	cfg := strategy.Config{Params: map[string]any{"lookback": 55, "atr_period": 10, "atr_multiplier": 2.5}}
	if err := s.Init(cfg); err != nil {
		t.Fatalf("init: %v", err)
	}
	if s.lookback != 55 || s.atrPeriod != 10 || s.atrMult != 2.5 {
		t.Errorf("params not applied: %+v", s)
	}
}
