package pair

import (
	"errors"
	"testing"
	"time"

	"github.com/11e3/quantlab/internal/core"
	"github.com/11e3/quantlab/internal/strategy"
)

func TestPair_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*Pair)(nil)
}

func closeBars(ticker string, closes []float64, skip map[int]bool) []core.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, 0, len(closes))
	for i, c := range closes {
		if skip[i] {
			continue
		}
		bars = append(bars, core.Bar{
			Ticker:   ticker,
			Interval: "1d",
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Volume:   1000,
			Time:     start.AddDate(0, 0, i),
		})
	}
	return bars
}

func TestPair_EntryOnStretchedSpread(t *testing.T) {
	s := New("AAA", "BBB", 3, 1.2, 1.0)

	// Leg A pinned; leg B dips hard on day 3, stretching the spread
	// z-score past the entry threshold, then snaps back on day 4.
	bars := map[string][]core.Bar{
		"AAA": closeBars("AAA", []float64{100, 100, 100, 100, 100}, nil),
		"BBB": closeBars("BBB", []float64{100, 101, 99, 90, 100}, nil),
	}

	frames, err := s.Build(bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	fb := frames["BBB"]
	fa := frames["AAA"]

	if !fb.Entry[3] {
		t.Error("expected entry on the cheap leg when z breaches the threshold")
	}
	if fa.Entry[3] {
		t.Error("the rich leg must not get an entry")
	}
	if fb.Target[3] != 90 {
		t.Errorf("entry target = %v, want the bar close 90", fb.Target[3])
	}
	if !fb.Exit[4] || !fa.Exit[4] {
		t.Error("expected both legs to exit once the spread reverts")
	}
	if fb.Exit[3] {
		t.Error("no exit while the spread is stretched")
	}
}

func TestPair_AlignsOnCommonDates(t *testing.T) {
	s := New("AAA", "BBB", 2, 1.5, 0.5)

	bars := map[string][]core.Bar{
		"AAA": closeBars("AAA", []float64{100, 100, 100, 100}, nil),
		"BBB": closeBars("BBB", []float64{50, 50, 50, 50}, map[int]bool{1: true}),
	}

	frames, err := s.Build(bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := frames["AAA"].Len(); got != 3 {
		t.Errorf("aligned length = %d, want 3", got)
	}
	if got := frames["BBB"].Len(); got != 3 {
		t.Errorf("aligned length = %d, want 3", got)
	}
	for i := range frames["AAA"].Dates {
		if !frames["AAA"].Dates[i].Equal(frames["BBB"].Dates[i]) {
			t.Fatalf("dates diverge at %d", i)
		}
	}
}

func TestPair_MissingLeg(t *testing.T) {
	s := New("AAA", "BBB", 3, 2, 0.5)
	bars := map[string][]core.Bar{
		"AAA": closeBars("AAA", []float64{100, 100, 100}, nil),
	}
	_, err := s.Build(bars)
	if !errors.Is(err, core.ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestPair_TooFewCommonBars(t *testing.T) {
	s := New("AAA", "BBB", 10, 2, 0.5)
	bars := map[string][]core.Bar{
		"AAA": closeBars("AAA", []float64{100, 100}, nil),
		"BBB": closeBars("BBB", []float64{50, 50}, nil),
	}
	_, err := s.Build(bars)
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("error = %v, want ErrInsufficientData", err)
	}
}

func TestPair_InitValidation(t *testing.T) {
	s := New("AAA", "BBB", 20, 2, 0.5)
	if err := s.Init(strategy.Config{Params: map[string]any{"leg_b": "AAA"}}); err == nil {
		t.Error("expected error for identical legs")
	}

	s = New("AAA", "BBB", 20, 2, 0.5)
	if err := s.Init(strategy.Config{Params: map[string]any{"entry_z": 0.2, "exit_z": 0.5}}); err == nil {
		t.Error("expected error for entry z below exit z")
	}

	s = New("", "", 0, 0, 0)
	cfg := strategy.Config{Params: map[string]any{
		"leg_a": "SPY", "leg_b": "QQQ", "lookback": 60, "entry_z": 2.0, "exit_z": 0.5,
	}}
	if err := s.Init(cfg); err != nil {
		t.Fatalf("init: %v", err)
	}
	if s.legA != "SPY" || s.lookback != 60 {
		t.Errorf("params not applied: %+v", s)
	}
}
