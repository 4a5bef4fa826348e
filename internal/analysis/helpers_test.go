package analysis

import (
	"math"
	"time"

	"github.com/11e3/quantlab/internal/backtest"
	"github.com/11e3/quantlab/internal/core"
	"github.com/11e3/quantlab/internal/frame"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// flatFrame enters on the first bar and exits on the last. Closes drive
// everything; open=high=low=close.
func flatFrame(ticker string, closes []float64) *frame.Frame {
	n := len(closes)
	f := &frame.Frame{
		Ticker: ticker,
		Dates:  make([]time.Time, n),
		Open:   append([]float64(nil), closes...),
		High:   append([]float64(nil), closes...),
		Low:    append([]float64(nil), closes...),
		Close:  append([]float64(nil), closes...),
		Volume: make([]float64, n),
		Entry:  make([]bool, n),
		Exit:   make([]bool, n),
		Target: make([]float64, n),
	}
	for i := range f.Dates {
		f.Dates[i] = day(i)
		f.Volume[i] = 1000
		f.Target[i] = math.NaN()
	}
	f.Entry[0] = true
	f.Target[0] = closes[0]
	f.Exit[n-1] = true
	return f
}

func trendBars(ticker string, closes []float64) []core.Bar {
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{
			Ticker:   ticker,
			Interval: "1d",
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Volume:   1000,
			Time:     day(i),
		}
	}
	return bars
}

func testRunner() *Runner {
	eng := backtest.NewEngine(backtest.FixedCost{}, nil)
	return NewRunner(eng, 2, nil)
}

func testConfig() backtest.Config {
	return backtest.Config{InitialCapital: 1000, MaxSlots: 1}
}
